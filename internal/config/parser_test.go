package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, key := range proxyEnvKeys {
		t.Setenv(key, "")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	clearProxyEnv(t)
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "10001", cfg.Search.Zipcode)
	assert.Equal(t, []int{225, 235}, cfg.Search.Widths)
	assert.Equal(t, []float64{17, 17.5}, cfg.Search.Diameters)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.DelayMin)
	assert.Equal(t, 6*time.Second, cfg.Scheduler.DelayMax)
	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.Equal(t, "tyre-scrapping", cfg.Sink.Mongo.Database)
	assert.Empty(t, cfg.Proxy.List)
}

func TestParseConfigOverridesAndEnv(t *testing.T) {
	clearProxyEnv(t)
	t.Setenv("TS_PROXY_PASS", "s3cret")
	t.Setenv("PROXY1", "http://env-proxy:8080")

	raw := `
retailers: [tirerack, walmart]
proxy:
  required: true
  retries: 2
  backoff_base: 100ms
  backoff_max: 1s
  list:
    - " http://user:${TS_PROXY_PASS}@p1:8000 "
    - ""
    - "http://p2:8000"
    - "http://p2:8000"
scheduler:
  delay_min: 1s
  delay_max: 2s
  task_attempts: 2
search:
  zipcode: "90210"
  widths: [205]
  ratios: [55]
  diameters: [16]
sites:
  walmart:
    search_url: "https://example.test/search?q={{.Width}}"
`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"tirerack", "walmart"}, cfg.Retailers)
	assert.Equal(t, []string{
		"http://user:s3cret@p1:8000",
		"http://p2:8000",
		"http://env-proxy:8080",
	}, cfg.Proxy.List)
	assert.True(t, cfg.Proxy.Required)
	assert.Equal(t, 100*time.Millisecond, cfg.Proxy.BackoffBase)
	assert.Equal(t, 2, cfg.Scheduler.TaskAttempts)
	assert.Equal(t, "90210", cfg.Search.Zipcode)
	assert.Equal(t, "https://example.test/search?q={{.Width}}", cfg.Site("walmart").SearchURL)
	assert.Empty(t, cfg.Site("bjs").SearchURL)
}

func TestParseConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown retailer", "retailers: [amazon]"},
		{"delay max below min", "scheduler: {delay_min: 5s, delay_max: 1s}"},
		{"bad zipcode", "search: {zipcode: abc}"},
		{"zero retries", "proxy: {retries: 0}"},
		{"bad driver", "browser: {driver: firefox}"},
		{"es enabled without address", "sink: {elasticsearch: {enabled: true}}"},
		{"mongo enabled without uri", "sink: {mongo: {enabled: true}}"},
		{"bad yaml", "retailers: [tirerack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: {zipcode: \"30301\"}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "30301", cfg.Search.Zipcode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeProxyList(t *testing.T) {
	got := NormalizeProxyList([]string{"  a ", "", "b", "a", "\t", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, NormalizeProxyList(nil))
}
