package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/infra/backoff"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/rs/zerolog"
)

// Readiness 页面就绪条件: 动态结果容器出现,而不是文档加载完成
type Readiness struct {
	Selector string
	// Timeout 为 0 时使用会话的默认超时
	Timeout time.Duration
}

type Navigator struct {
	backoff backoff.Policy
	sleep   func(ctx context.Context, d time.Duration) error
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Navigator)

// WithBackoff 默认重试之间不额外等待
func WithBackoff(p backoff.Policy) Option {
	return func(n *Navigator) { n.backoff = p }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(n *Navigator) { n.sleep = sleep }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Navigator) { n.metrics = m }
}

func New(logger zerolog.Logger, opts ...Option) *Navigator {
	n := &Navigator{
		backoff: backoff.None(),
		sleep:   backoff.Sleep,
		logger:  logger.With().Str("component", "navigation").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Goto 导航到 url 并等待就绪,瞬时失败最多重试 maxAttempts 次
// 重试耗尽返回 NavigationError,父 ctx 取消时立即返回
func (n *Navigator) Goto(ctx context.Context, sess chrome.Session, url string, ready Readiness, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			n.metrics.IncNavigationRetry()
			if err := n.sleep(ctx, n.backoff(attempt-1)); err != nil {
				return &common.NavigationError{URL: url, Attempts: attempt - 1, Err: errors.Join(lastErr, err)}
			}
		}

		err := n.attempt(ctx, sess, url, ready)
		if err == nil {
			if attempt > 1 {
				n.logger.Info().Str("url", url).Int("attempt", attempt).Msg("navigation succeeded after retry")
			}
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return &common.NavigationError{URL: url, Attempts: attempt, Err: err}
		}
		n.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("navigation failed, retrying")
	}
	return &common.NavigationError{URL: url, Attempts: maxAttempts, Err: lastErr}
}

func (n *Navigator) attempt(ctx context.Context, sess chrome.Session, url string, ready Readiness) error {
	if err := sess.Navigate(ctx, url); err != nil {
		return err
	}
	if ready.Selector == "" {
		return nil
	}
	if err := sess.WaitVisible(ctx, ready.Selector, ready.Timeout); err != nil {
		return fmt.Errorf("results container %q not ready: %w", ready.Selector, err)
	}
	return nil
}
