package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/LouYuanbo1/tirescraper/internal/infra/persistence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedConfigParses(t *testing.T) {
	cfg, err := config.ParseConfig(defaultConfig)
	require.NoError(t, err)
	assert.Equal(t, []string{"tirerack", "walmart", "discounttire", "bjs"}, cfg.Retailers)
	assert.Equal(t, "10001", cfg.Search.Zipcode)
	assert.Equal(t, 10, cfg.Site("walmart").MaxPages)
	assert.Zero(t, cfg.Navigation.Backoff)
	assert.False(t, cfg.Sink.Elasticsearch.Enabled)
}

func TestCombosCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retailers: [tirerack]
search:
  zipcode: "90210"
  widths: [225]
  ratios: [40, 45]
  diameters: [17]
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"combos", "--config", path})
	t.Cleanup(func() {
		configPath = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"1\t225-40-17\t225/40R17",
		"2\t225-45-17\t225/45R17",
		"total: 2",
	}, lines)
}

func TestBuildSinkFallsBackToLog(t *testing.T) {
	sink, closeSink, err := buildSink(context.Background(), config.SinkConfig{}, zerolog.Nop())
	require.NoError(t, err)
	defer closeSink()
	assert.Equal(t, "log", persistence.NameOf(sink))
}

func TestSessionTemplateCopiesBrowserConfig(t *testing.T) {
	b := config.Default().Browser
	b.UserAgents = []string{"ua-1"}
	s := sessionTemplate(b)
	assert.Equal(t, b.DefaultTimeout, s.DefaultTimeout)
	assert.Equal(t, []string{"ua-1"}, s.UserAgents)
	assert.Empty(t, s.Proxy)
}
