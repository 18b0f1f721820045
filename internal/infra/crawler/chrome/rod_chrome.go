package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

type rodDriver struct {
	logger zerolog.Logger
}

func InitRodDriver(logger zerolog.Logger) Driver {
	return &rodDriver{logger: logger}
}

func (d *rodDriver) Name() string { return "rod" }

func (d *rodDriver) Launch(ctx context.Context, opts param.Session, fp Fingerprint) (Session, error) {
	// 浏览器进程的生命周期由 Close 控制,不跟随调用方 ctx 取消,否则超时后无法正常清理
	bgCtx := context.WithoutCancel(ctx)

	l := launcher.New().
		Context(bgCtx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(opts.Leakless).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", fp.Width, fp.Height))
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &rodSession{launcher: l, timeout: opts.DefaultTimeout}
	s.browser = rod.New().ControlURL(controlURL).Context(bgCtx)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	if err := s.setup(ctx, fp); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

func (s *rodSession) setup(ctx context.Context, fp Fingerprint) error {
	// 无痕上下文,会话之间不共享 cookie 和缓存
	incognito, err := s.browser.Incognito()
	if err != nil {
		return fmt.Errorf("failed to create incognito context: %w", err)
	}
	// stealth.Page 会在新文档加载前注入反检测脚本
	page, err := stealth.Page(incognito)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}
	s.page = page

	p := s.page.Context(ctx).Timeout(timeoutOr(0, s.timeout))
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      fp.UserAgent,
		AcceptLanguage: fp.Headers["Accept-Language"],
	}); err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             fp.Width,
		Height:            fp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	if _, err := p.SetExtraHeaders(fp.HeaderPairs()); err != nil {
		return fmt.Errorf("failed to set extra headers: %w", err)
	}
	return nil
}

func (s *rodSession) p(ctx context.Context, timeout time.Duration) *rod.Page {
	return s.page.Context(ctx).Timeout(timeoutOr(timeout, s.timeout))
}

func (s *rodSession) DefaultTimeout() time.Duration {
	return timeoutOr(0, s.timeout)
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.p(ctx, 0).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	// Element 会一直重试直到元素出现或超时
	el, err := s.p(ctx, timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (s *rodSession) Exists(ctx context.Context, selector string) (bool, error) {
	has, _, err := s.p(ctx, 0).Has(selector)
	return has, err
}

func (s *rodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := s.p(ctx, 0).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (s *rodSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := s.p(ctx, 0).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return el, nil
}

func (s *rodSession) Text(ctx context.Context, selector string) (string, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) Enabled(ctx context.Context, selector string) (bool, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return false, err
	}
	disabled, err := el.Disabled()
	if err != nil {
		return false, err
	}
	aria, err := el.Attribute("aria-disabled")
	if err != nil {
		return false, err
	}
	return !disabled && (aria == nil || *aria != "true"), nil
}

func (s *rodSession) Input(ctx context.Context, selector, text string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.p(ctx, 0).HTML()
}

func (s *rodSession) Eval(ctx context.Context, js string, args ...any) (string, error) {
	res, err := s.p(ctx, 0).Eval(js, args...)
	if err != nil {
		return "", err
	}
	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return err
}
