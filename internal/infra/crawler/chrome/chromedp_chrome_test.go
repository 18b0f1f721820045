package chrome_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findBrowser 优先使用 CHROME_BIN,否则在 PATH 中查找常见的可执行文件
func findBrowser(t *testing.T) string {
	t.Helper()
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no chrome or chromium executable available")
	return ""
}

func TestChromedpSessionOutlivesLaunchContext(t *testing.T) {
	bin := findBrowser(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="productTile" id="ready">Michelin</div><button id="next" disabled>Next</button></body></html>`)
	}))
	defer srv.Close()

	opts := param.Session{
		Headless:       true,
		NoSandbox:      true,
		Bin:            bin,
		DefaultTimeout: 20 * time.Second,
	}
	fp := chrome.Fingerprint{UserAgent: "tirescraper-test", Width: 1280, Height: 800}

	launchCtx, cancelLaunch := context.WithTimeout(context.Background(), 30*time.Second)
	sess, err := chrome.InitChromedpDriver(zerolog.Nop()).Launch(launchCtx, opts, fp)
	cancelLaunch()
	require.NoError(t, err)
	defer sess.Close()

	// Launch 的 ctx 已经结束,浏览器必须仍然可用
	ctx := context.Background()
	require.NoError(t, sess.Navigate(ctx, srv.URL))
	require.NoError(t, sess.WaitVisible(ctx, "#ready", 5*time.Second))

	text, err := sess.Text(ctx, "#ready")
	require.NoError(t, err)
	assert.Equal(t, "Michelin", text)

	enabled, err := sess.Enabled(ctx, "#next")
	require.NoError(t, err)
	assert.False(t, enabled)

	// 再做一次操作,确认浏览器没有在第一次操作结束后退出
	n, err := sess.Count(ctx, ".productTile")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChromedpLaunchHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := chrome.InitChromedpDriver(zerolog.Nop()).Launch(ctx, param.Session{Bin: "/nonexistent/chrome"}, chrome.Fingerprint{Width: 800, Height: 600})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRodLaunchMissingBinary(t *testing.T) {
	_, err := chrome.InitRodDriver(zerolog.Nop()).Launch(context.Background(),
		param.Session{Bin: "/nonexistent/chrome", Headless: true, Leakless: false},
		chrome.Fingerprint{Width: 800, Height: 600})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch browser")
}
