package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/backoff"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/LouYuanbo1/tirescraper/internal/infra/persistence"
	"github.com/LouYuanbo1/tirescraper/internal/infra/proxy"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/normalize"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/internal/site"
	"github.com/LouYuanbo1/tirescraper/param"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const defaultSeenPages = 256

// ProxySource 代理池的最小接口, 返回 proxy.Direct 表示直连
type ProxySource interface {
	GetProxy(ctx context.Context) (string, error)
	Invalidate(anonymized string)
}

// Engine 执行一个抓取任务: 代理 -> 会话 -> 导航 -> 准备 -> 翻页 -> 提取 -> 规范化 -> 存储
type Engine interface {
	RunTask(ctx context.Context, task *param.ScrapeTask, adapter site.Adapter) error
}

type Options struct {
	// Session 会话模板,每个任务填入自己的代理
	Session       param.Session
	ProxyRequired bool
	NavAttempts   int
	NavBackoff    backoff.Policy
	ReadyTimeout  time.Duration
	// MaxPages 全局页数上限, SiteMaxPages 按零售商覆盖, 0 表示不限制
	MaxPages     int
	SiteMaxPages map[string]int
	StrictPrice  bool
	// SeenPages 单个任务内记录已访问页面指纹的数量,用于发现翻页后回到了旧页面
	SeenPages int
	Now       func() time.Time
}

type engine struct {
	pool       ProxySource
	sessions   *chrome.Manager
	navigator  *navigation.Navigator
	normalizer *normalize.Normalizer
	sink       persistence.Sink
	opts       Options
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

func InitEngine(
	pool ProxySource,
	sessions *chrome.Manager,
	sink persistence.Sink,
	opts Options,
	logger zerolog.Logger,
	m *metrics.Metrics,
) Engine {
	logger = logger.With().Str("component", "engine").Logger()
	if opts.NavAttempts < 1 {
		opts.NavAttempts = 1
	}
	if opts.NavBackoff == nil {
		opts.NavBackoff = backoff.None()
	}
	if opts.SeenPages <= 0 {
		opts.SeenPages = defaultSeenPages
	}
	normOpts := []normalize.Option{
		normalize.WithStrictPrice(opts.StrictPrice),
		normalize.WithFallbackHook(func(raw entity.RawListing, retailer string) {
			m.IncPriceFallback(retailer)
			logger.Warn().
				Str("retailer", retailer).
				Str("brand", raw.Brand).
				Str("model", raw.Model).
				Str("raw_price", raw.Price).
				Msg("unparseable price, recorded as 0")
		}),
	}
	if opts.Now != nil {
		normOpts = append(normOpts, normalize.WithClock(opts.Now))
	}
	return &engine{
		pool:       pool,
		sessions:   sessions,
		navigator:  navigation.New(logger, navigation.WithBackoff(opts.NavBackoff), navigation.WithMetrics(m)),
		normalizer: normalize.New(normOpts...),
		sink:       sink,
		opts:       opts,
		logger:     logger,
		metrics:    m,
	}
}

// taskStats 单个任务的计数
type taskStats struct {
	pages     int
	extracted int
	saved     int
	invalid   int
}

func (e *engine) RunTask(ctx context.Context, task *param.ScrapeTask, adapter site.Adapter) error {
	log := e.logger.With().
		Str("retailer", adapter.ID()).
		Str("zipcode", task.Zipcode).
		Str("combination", task.Combination.String()).
		Int("attempt", task.Attempt).
		Logger()

	proxyAddr, err := e.acquireProxy(ctx)
	if err != nil {
		return err
	}

	searchURL, err := adapter.SearchURL(task.Zipcode, task.Combination)
	if err != nil {
		return common.NewConfigurationError("sites", adapter.ID()+".search_url", err.Error())
	}

	sessOpts := e.opts.Session
	sessOpts.Proxy = proxyAddr
	stats := &taskStats{}

	err = e.sessions.With(ctx, sessOpts, func(ctx context.Context, sess chrome.Session) error {
		ready := adapter.Readiness()
		if ready.Timeout <= 0 {
			ready.Timeout = e.opts.ReadyTimeout
		}
		log.Debug().Str("url", searchURL).Bool("proxy", proxyAddr != proxy.Direct).Msg("navigating")
		if err := e.navigator.Goto(ctx, sess, searchURL, ready, e.opts.NavAttempts); err != nil {
			// 导航耗尽可能是代理失效,下次重新匿名化
			if proxyAddr != proxy.Direct && e.pool != nil {
				e.pool.Invalidate(proxyAddr)
			}
			return err
		}

		if p, ok := adapter.(site.Preparer); ok {
			if err := p.Prepare(ctx, sess, task.Zipcode); err != nil {
				return &common.PageTransitionError{From: 0, Target: 1, Reason: "page preparation failed", Err: err}
			}
		}

		seen, err := lru.New[string, int](e.opts.SeenPages)
		if err != nil {
			return fmt.Errorf("failed to create page cache: %w", err)
		}
		traversal := pagination.New(sess, adapter.Locator(),
			pagination.WithMaxPages(e.maxPages(adapter.ID())),
			pagination.WithWaitTimeout(ready.Timeout),
			pagination.WithLogger(log),
		)
		pages, err := traversal.Walk(ctx, func(ctx context.Context, state pagination.PageState) error {
			task.Page = state.Current
			return e.processPage(ctx, sess, task, adapter, seen, stats, log)
		})
		stats.pages = pages
		return err
	})

	var event *zerolog.Event
	if err != nil {
		event = log.Warn().Err(err).Int("page", task.Page)
	} else {
		event = log.Info()
	}
	event.
		Int("pages", stats.pages).
		Int("extracted", stats.extracted).
		Int("saved", stats.saved).
		Int("invalid", stats.invalid).
		Msg("task finished")
	return err
}

func (e *engine) acquireProxy(ctx context.Context) (string, error) {
	if e.pool == nil {
		if e.opts.ProxyRequired {
			return "", common.NewConfigurationError("proxy", "list", "proxies are required but none are configured")
		}
		return proxy.Direct, nil
	}
	addr, err := e.pool.GetProxy(ctx)
	if err != nil {
		return "", err
	}
	if addr == proxy.Direct && e.opts.ProxyRequired {
		return "", common.NewConfigurationError("proxy", "list", "proxies are required but none are configured")
	}
	return addr, nil
}

// processPage 提取当前页并逐条规范化、写入,全部写完才返回,之后才会请求下一页
// 每条规范化后的记录都交给 Sink,重复记录由存储端容忍
// 整页内容与本任务之前某一页完全相同时说明翻页回到了旧页面,返回 PageTransitionError
func (e *engine) processPage(
	ctx context.Context,
	sess chrome.Session,
	task *param.ScrapeTask,
	adapter site.Adapter,
	seen *lru.Cache[string, int],
	stats *taskStats,
	log zerolog.Logger,
) error {
	listings, err := adapter.Extract(ctx, sess, task.Combination)
	if err != nil {
		return fmt.Errorf("failed to extract page %d: %w", task.Page, err)
	}
	stats.extracted += len(listings)
	if fp := pageFingerprint(listings); fp != "" {
		if prev, ok := seen.Get(fp); ok {
			return &common.PageTransitionError{
				From:   task.Page - 1,
				Target: task.Page,
				Reason: fmt.Sprintf("page %d repeats the listings of page %d", task.Page, prev),
			}
		}
		seen.Add(fp, task.Page)
	}

	sinkName := persistence.NameOf(e.sink)
	for _, raw := range listings {
		raw.Stamp(task.Combination, task.Zipcode)
		rec, err := e.normalizer.Normalize(raw, adapter.ID())
		if err != nil {
			var recErr *common.InvalidRecordError
			if errors.As(err, &recErr) {
				stats.invalid++
				e.metrics.IncInvalid(adapter.ID())
				log.Warn().Str("field", recErr.Field).Int("page", task.Page).Msg("invalid record skipped")
				continue
			}
			return err
		}

		if err := e.sink.Save(ctx, rec); err != nil {
			return &common.SinkError{Sink: sinkName, Err: err}
		}
		stats.saved++
		e.metrics.IncSaved(adapter.ID())
	}

	if f, ok := e.sink.(persistence.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return &common.SinkError{Sink: sinkName, Err: err}
		}
	}
	log.Debug().Int("page", task.Page).Int("listings", len(listings)).Msg("page processed")
	return nil
}

func (e *engine) maxPages(retailer string) int {
	if n, ok := e.opts.SiteMaxPages[retailer]; ok && n > 0 {
		return n
	}
	return e.opts.MaxPages
}

// pageFingerprint 用原始卡片内容标识一页,空页不参与比较
func pageFingerprint(listings []entity.RawListing) string {
	if len(listings) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range listings {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s\n", l.URL, l.Brand, l.Model, l.Size, l.Price, l.Availability)
	}
	return b.String()
}
