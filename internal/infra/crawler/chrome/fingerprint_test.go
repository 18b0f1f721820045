package chrome

import (
	"math/rand/v2"
	"testing"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/stretchr/testify/assert"
)

func TestNewFingerprintJittersViewport(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	opts := param.Session{
		UserAgents:     []string{"ua-1", "ua-2"},
		ViewportWidth:  1280,
		ViewportHeight: 800,
		ViewportJitter: 200,
	}
	for range 100 {
		fp := NewFingerprint(opts, rnd)
		assert.Contains(t, opts.UserAgents, fp.UserAgent)
		assert.GreaterOrEqual(t, fp.Width, 1280)
		assert.Less(t, fp.Width, 1480)
		assert.GreaterOrEqual(t, fp.Height, 800)
		assert.Less(t, fp.Height, 1000)
		assert.Equal(t, "en-US,en;q=0.9", fp.Headers["Accept-Language"])
	}
}

func TestNewFingerprintDefaults(t *testing.T) {
	fp := NewFingerprint(param.Session{}, rand.New(rand.NewPCG(3, 4)))
	assert.NotEmpty(t, fp.UserAgent)
	assert.Equal(t, 1280, fp.Width)
	assert.Equal(t, 800, fp.Height)
}

func TestNewFingerprintBlankUserAgentFallsBack(t *testing.T) {
	fp := NewFingerprint(param.Session{UserAgents: []string{"  "}}, rand.New(rand.NewPCG(5, 6)))
	assert.Equal(t, fallbackUserAgent, fp.UserAgent)
}

func TestHeaderPairs(t *testing.T) {
	fp := Fingerprint{Headers: map[string]string{"Accept-Language": "de-DE"}}
	assert.Equal(t, []string{"Accept-Language", "de-DE"}, fp.HeaderPairs())
}
