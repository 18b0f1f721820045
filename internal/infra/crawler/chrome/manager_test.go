package chrome_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome/chrometest"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() (*chrome.Manager, *chrometest.Driver) {
	driver := &chrometest.Driver{
		NewSession: func(param.Session) (*chrometest.Session, error) {
			return chrometest.New(), nil
		},
	}
	m := chrome.NewManager(driver, zerolog.Nop()).WithRand(rand.New(rand.NewPCG(7, 8)))
	return m, driver
}

func TestWithClosesOnEveryExitPath(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, sess chrome.Session) error
	}{
		{"success", func(context.Context, chrome.Session) error { return nil }},
		{"error", func(context.Context, chrome.Session) error { return errors.New("extract failed") }},
		{"timeout", func(ctx context.Context, _ chrome.Session) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, driver := newManager()
			opts := param.Session{LifeTime: 20 * time.Millisecond}
			_ = m.With(context.Background(), opts, tt.fn)

			require.Len(t, driver.Sessions, 1)
			assert.True(t, driver.Sessions[0].Closed)
			assert.Zero(t, m.Active())
		})
	}
}

func TestWithClosesOnPanic(t *testing.T) {
	m, driver := newManager()
	assert.Panics(t, func() {
		_ = m.With(context.Background(), param.Session{}, func(context.Context, chrome.Session) error {
			panic("selector blew up")
		})
	})
	require.Len(t, driver.Sessions, 1)
	assert.True(t, driver.Sessions[0].Closed)
	assert.Zero(t, m.Active())
}

func TestWithPropagatesResult(t *testing.T) {
	m, _ := newManager()
	want := errors.New("boom")
	err := m.With(context.Background(), param.Session{}, func(context.Context, chrome.Session) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestOpenLaunchFailure(t *testing.T) {
	driver := &chrometest.Driver{
		NewSession: func(param.Session) (*chrometest.Session, error) {
			return nil, errors.New("chrome not found")
		},
	}
	m := chrome.NewManager(driver, zerolog.Nop())
	called := false
	err := m.With(context.Background(), param.Session{}, func(context.Context, chrome.Session) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	assert.Zero(t, m.Active())
}

func TestOpenPassesFingerprintAndProxy(t *testing.T) {
	m, driver := newManager()
	opts := param.Session{
		Proxy:          "http://127.0.0.1:3128",
		UserAgents:     []string{"ua-test"},
		ViewportWidth:  1280,
		ViewportHeight: 800,
		ViewportJitter: 200,
	}
	sess, err := m.Open(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Active())

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Zero(t, m.Active())

	require.Len(t, driver.Launches, 1)
	assert.Equal(t, "http://127.0.0.1:3128", driver.Launches[0].Proxy)
	assert.Equal(t, "ua-test", driver.Prints[0].UserAgent)
	assert.GreaterOrEqual(t, driver.Prints[0].Width, 1280)
}
