package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.ObserveTask("walmart", "succeeded", 2*time.Second)
	m.ObserveTask("walmart", "failed", time.Second)
	m.IncSaved("walmart")
	m.IncSaved("walmart")
	m.IncInvalid("bjs")
	m.IncPriceFallback("bjs")
	m.IncProxyFailure()
	m.IncNavigationRetry()
	m.IncError("navigation")
	m.SetProcessed("walmart", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("walmart", "succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsSavedTotal.WithLabelValues("walmart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidRecordsTotal.WithLabelValues("bjs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceFallbackTotal.WithLabelValues("bjs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NavigationRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("navigation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksProcessed.WithLabelValues("walmart")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTask("x", "failed", time.Second)
		m.SetProcessed("x", 1)
		m.IncSaved("x")
		m.IncInvalid("x")
		m.IncPriceFallback("x")
		m.IncProxyFailure()
		m.IncNavigationRetry()
		m.IncError("other")
	})
}
