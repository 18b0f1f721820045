package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/corpix/uarand"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

type collyProber struct {
	probeURL  string
	timeout   time.Duration
	transport http.RoundTripper
	logger    zerolog.Logger
}

type ProberOption func(*collyProber)

// WithTransport 测试中注入 httpmock 的 transport
func WithTransport(t http.RoundTripper) ProberOption {
	return func(p *collyProber) { p.transport = t }
}

func WithLogger(l zerolog.Logger) ProberOption {
	return func(p *collyProber) { p.logger = l }
}

func InitCollyProber(probeURL string, timeout time.Duration, opts ...ProberOption) ProxyProber {
	p := &collyProber{
		probeURL: probeURL,
		timeout:  timeout,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "proxy_prober").Logger()
	return p
}

func (p *collyProber) Probe(ctx context.Context, proxyURL string) error {
	// 每次探测使用新的 collector,避免代理设置和访问记录互相影响
	c := colly.NewCollector(
		colly.UserAgent(uarand.GetRandom()),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.StdlibContext(ctx),
	)
	if p.timeout > 0 {
		c.SetRequestTimeout(p.timeout)
	}
	if proxyURL != "" {
		if err := c.SetProxy(proxyURL); err != nil {
			return fmt.Errorf("failed to set proxy: %w", err)
		}
	}
	if p.transport != nil {
		c.WithTransport(p.transport)
	}

	start := time.Now()
	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	if err := c.Visit(p.probeURL); err != nil {
		return fmt.Errorf("probe %s via %s failed: %w", p.probeURL, proxyURL, err)
	}
	p.logger.Debug().
		Str("proxy", proxyURL).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("proxy probe ok")
	return nil
}
