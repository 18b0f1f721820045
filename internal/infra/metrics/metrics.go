package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 抓取流程的 Prometheus 指标,所有方法对 nil 接收者安全
type Metrics struct {
	Registry            *prometheus.Registry
	TasksTotal          *prometheus.CounterVec
	TaskDuration        *prometheus.HistogramVec
	TasksProcessed      *prometheus.GaugeVec
	RecordsSavedTotal   *prometheus.CounterVec
	InvalidRecordsTotal *prometheus.CounterVec
	PriceFallbackTotal  *prometheus.CounterVec
	ProxyFailuresTotal  prometheus.Counter
	NavigationRetries   prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
}

// New 在独立的 registry 上注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tirescraper_tasks_total",
		Help: "Scrape tasks by retailer and terminal status.",
	}, []string{"retailer", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tirescraper_task_duration_seconds",
		Help:    "Wall time of one scrape task including retries.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	}, []string{"retailer"})
	processed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tirescraper_tasks_processed",
		Help: "Combinations processed so far in the current run.",
	}, []string{"retailer"})
	saved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tirescraper_records_saved_total",
		Help: "Normalized records handed to the sink.",
	}, []string{"retailer"})
	invalid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tirescraper_invalid_records_total",
		Help: "Records skipped for missing required fields.",
	}, []string{"retailer"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tirescraper_price_fallback_total",
		Help: "Records whose price could not be parsed and fell back to zero.",
	}, []string{"retailer"})
	proxyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tirescraper_proxy_anonymize_failures_total",
		Help: "Failed proxy anonymization attempts.",
	})
	navRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tirescraper_navigation_retries_total",
		Help: "Navigation attempts beyond the first.",
	})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tirescraper_errors_total",
		Help: "Task errors by type.",
	}, []string{"error_type"})

	registry.MustRegister(tasks, duration, processed, saved, invalid, fallback, proxyFailures, navRetries, errorsTotal)

	return &Metrics{
		Registry:            registry,
		TasksTotal:          tasks,
		TaskDuration:        duration,
		TasksProcessed:      processed,
		RecordsSavedTotal:   saved,
		InvalidRecordsTotal: invalid,
		PriceFallbackTotal:  fallback,
		ProxyFailuresTotal:  proxyFailures,
		NavigationRetries:   navRetries,
		ErrorsTotal:         errorsTotal,
	}
}

func (m *Metrics) ObserveTask(retailer, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(retailer, status).Inc()
	m.TaskDuration.WithLabelValues(retailer).Observe(d.Seconds())
}

func (m *Metrics) SetProcessed(retailer string, n int) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(retailer).Set(float64(n))
}

func (m *Metrics) IncSaved(retailer string) {
	if m == nil {
		return
	}
	m.RecordsSavedTotal.WithLabelValues(retailer).Inc()
}

func (m *Metrics) IncInvalid(retailer string) {
	if m == nil {
		return
	}
	m.InvalidRecordsTotal.WithLabelValues(retailer).Inc()
}

func (m *Metrics) IncPriceFallback(retailer string) {
	if m == nil {
		return
	}
	m.PriceFallbackTotal.WithLabelValues(retailer).Inc()
}

func (m *Metrics) IncProxyFailure() {
	if m == nil {
		return
	}
	m.ProxyFailuresTotal.Inc()
}

func (m *Metrics) IncNavigationRetry() {
	if m == nil {
		return
	}
	m.NavigationRetries.Inc()
}

func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
