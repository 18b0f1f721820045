package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

type chromedpDriver struct {
	logger zerolog.Logger
}

func InitChromedpDriver(logger zerolog.Logger) Driver {
	return &chromedpDriver{logger: logger}
}

func (d *chromedpDriver) Name() string { return "chromedp" }

func (d *chromedpDriver) Launch(ctx context.Context, opts param.Session, fp Fingerprint) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", opts.NoSandbox),
		chromedp.UserAgent(fp.UserAgent),
		chromedp.WindowSize(fp.Width, fp.Height),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.Bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.Bin))
	}

	// 与 rod 相同,浏览器的生命周期由 Close 控制
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	s := &chromedpSession{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     opts.DefaultTimeout,
	}

	headers := make(network.Headers, len(fp.Headers))
	for k, v := range fp.Headers {
		headers[k] = v
	}
	if err := ctx.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	// 第一次 Run 会启动浏览器进程,进程绑定在传入的 ctx 上,
	// 这里不能套超时,否则 Launch 返回时浏览器就被关掉了
	err := chromedp.Run(s.tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetDeviceMetricsOverride(int64(fp.Width), int64(fp.Height), 1, false),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// 复用 stealth 的反检测脚本
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return s, nil
}

type chromedpSession struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
}

// run 在 tab 上下文上执行动作,超时或调用方 ctx 取消都会中断本次操作,但不会关闭 tab
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.tabCtx, timeoutOr(timeout, s.timeout))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(opCtx, actions...)
}

func (s *chromedpSession) eval(ctx context.Context, expr string, res any) error {
	return s.run(ctx, 0, chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func jsString(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *chromedpSession) DefaultTimeout() time.Duration {
	return timeoutOr(0, s.timeout)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromedpSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Exists(ctx context.Context, selector string) (bool, error) {
	var ok bool
	err := s.eval(ctx, fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector)), &ok)
	return ok, err
}

func (s *chromedpSession) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := s.eval(ctx, fmt.Sprintf("document.querySelectorAll(%s).length", jsString(selector)), &n)
	return n, err
}

func (s *chromedpSession) Text(ctx context.Context, selector string) (string, error) {
	var text *string
	expr := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el === null ? null : el.innerText; })()`, jsString(selector))
	if err := s.eval(ctx, expr, &text); err != nil {
		return "", err
	}
	if text == nil {
		return "", fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return *text, nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	ok, err := s.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return s.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromedpSession) Enabled(ctx context.Context, selector string) (bool, error) {
	var state *bool
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el === null) return null;
		return !el.disabled && el.getAttribute('aria-disabled') !== 'true';
	})()`, jsString(selector))
	if err := s.eval(ctx, expr, &state); err != nil {
		return false, err
	}
	if state == nil {
		return false, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return *state, nil
}

func (s *chromedpSession) Input(ctx context.Context, selector, text string) error {
	return s.run(ctx, 0, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (s *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromedpSession) Eval(ctx context.Context, js string, args ...any) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		encoded = append(encoded, jsString(a))
	}
	var res any
	if err := s.eval(ctx, fmt.Sprintf("(%s)(%s)", js, strings.Join(encoded, ", ")), &res); err != nil {
		return "", err
	}
	switch v := res.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.tabCtx)
	s.cancelTab()
	s.cancelAlloc()
	return err
}
