package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/infra/backoff"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/rs/zerolog"
)

// Direct 没有配置代理时返回的哨兵值,表示直连
const Direct = ""

// Anonymizer 把上游代理(可能带认证)转换成本地无认证的代理地址
type Anonymizer interface {
	Anonymize(ctx context.Context, raw string) (string, error)
	Close(anonymized string) error
}

// Prober 匿名化之后可选的连通性检查
type Prober interface {
	Probe(ctx context.Context, proxyURL string) error
}

type Option func(*Pool)

func WithRetries(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.retries = n
		}
	}
}

func WithBackoff(policy backoff.Policy) Option {
	return func(p *Pool) { p.backoff = policy }
}

// WithSleep 测试中替换真实的等待
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pool) { p.sleep = sleep }
}

func WithProber(prober Prober) Option {
	return func(p *Pool) { p.prober = prober }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// Pool 轮转代理池
// 轮转下标和匿名化缓存是唯一的共享可变状态,GetProxy 全程持有同一把锁,
// 并发的零售商流程不会看到转了一半的轮次
type Pool struct {
	mu         sync.Mutex
	endpoints  []*Endpoint
	next       int
	anonymizer Anonymizer
	prober     Prober
	retries    int
	backoff    backoff.Policy
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

func NewPool(raws []string, anonymizer Anonymizer, opts ...Option) *Pool {
	p := &Pool{
		anonymizer: anonymizer,
		retries:    3,
		backoff:    backoff.Exponential(500*time.Millisecond, 5*time.Second),
		sleep:      backoff.Sleep,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		if raw == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		p.endpoints = append(p.endpoints, &Endpoint{Raw: raw})
	}
	p.logger = p.logger.With().Str("component", "proxy_pool").Logger()
	return p
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// GetProxy 从上次返回的下一个位置开始轮转,返回可用的匿名化地址
// 轮转回到起始下标仍未成功时返回 ProxyExhaustedError;池为空时返回 Direct
func (p *Pool) GetProxy(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	if n == 0 {
		return Direct, nil
	}

	start := p.next % n
	idx := start
	examined := 0
	var lastErr error
	for {
		ep := p.endpoints[idx]
		examined++

		// 命中缓存直接返回,不再调用匿名化
		if ep.Anonymized != "" {
			p.markUsed(idx)
			return ep.Anonymized, nil
		}

		anonymized, err := p.anonymize(ctx, ep)
		if err == nil {
			ep.Anonymized = anonymized
			ep.Health = HealthHealthy
			p.markUsed(idx)
			p.logger.Info().Str("proxy", redact(ep.Raw)).Str("anonymized", anonymized).Msg("proxy anonymized")
			return anonymized, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		ep.Health = HealthFailed
		lastErr = err
		p.logger.Warn().Err(err).Str("proxy", redact(ep.Raw)).Int("retries", p.retries).Msg("proxy failed, advancing")

		idx = (idx + 1) % n
		if idx == start {
			return "", &common.ProxyExhaustedError{Examined: examined, LastErr: lastErr}
		}
	}
}

func (p *Pool) markUsed(idx int) {
	p.endpoints[idx].LastUsed = p.now()
	p.next = (idx + 1) % len(p.endpoints)
}

func (p *Pool) anonymize(ctx context.Context, ep *Endpoint) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.backoff(attempt-1)); err != nil {
				return "", err
			}
		}
		anonymized, err := p.anonymizer.Anonymize(ctx, ep.Raw)
		if err == nil && p.prober != nil {
			if err = p.prober.Probe(ctx, anonymized); err != nil {
				_ = p.anonymizer.Close(anonymized)
			}
		}
		if err == nil {
			return anonymized, nil
		}
		lastErr = err
		p.metrics.IncProxyFailure()
		p.logger.Debug().Err(err).Str("proxy", redact(ep.Raw)).Int("attempt", attempt).Msg("anonymize attempt failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// Invalidate 丢弃某个匿名化地址的缓存并标记失败,下次轮到它时会重新匿名化
func (p *Pool) Invalidate(anonymized string) {
	if anonymized == Direct {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.Anonymized == anonymized {
			_ = p.anonymizer.Close(anonymized)
			ep.Anonymized = ""
			ep.Health = HealthFailed
			p.logger.Warn().Str("proxy", redact(ep.Raw)).Msg("proxy invalidated")
			return
		}
	}
}

// Endpoints 返回当前状态的快照
func (p *Pool) Endpoints() []Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Endpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		out = append(out, *ep)
	}
	return out
}

// Close 释放所有本地转发器
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.Anonymized != "" {
			_ = p.anonymizer.Close(ep.Anonymized)
			ep.Anonymized = ""
		}
	}
}
