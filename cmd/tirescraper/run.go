package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"github.com/LouYuanbo1/tirescraper/internal/infra/backoff"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/tirescraper/internal/infra/logger"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/LouYuanbo1/tirescraper/internal/infra/persistence"
	"github.com/LouYuanbo1/tirescraper/internal/infra/persistence/es"
	"github.com/LouYuanbo1/tirescraper/internal/infra/persistence/mongo"
	"github.com/LouYuanbo1/tirescraper/internal/infra/proxy"
	"github.com/LouYuanbo1/tirescraper/internal/service/crawler"
	"github.com/LouYuanbo1/tirescraper/internal/service/parallel"
	"github.com/LouYuanbo1/tirescraper/internal/service/scheduler"
	"github.com/LouYuanbo1/tirescraper/internal/site"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	runRetailers []string
	metricsAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run [--retailer <id> ...]",
	Short: "Scrapes every search combination for the configured retailers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(runRetailers) > 0 {
			cfg.Retailers = runRetailers
			if err := config.Validate(cfg); err != nil {
				return err
			}
		}
		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringSliceVarP(&runRetailers, "retailer", "r", nil, "retailers to scrape, defaults to the config list")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, m, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sink, closeSink, err := buildSink(ctx, cfg.Sink, log)
	if err != nil {
		return err
	}
	defer closeSink()

	pool := buildPool(cfg.Proxy, log, m)
	defer pool.Close()
	log.Info().Int("proxies", pool.Len()).Bool("required", cfg.Proxy.Required).Msg("proxy pool ready")

	var driver chrome.Driver
	switch cfg.Browser.Driver {
	case "chromedp":
		driver = chrome.InitChromedpDriver(log)
	default:
		driver = chrome.InitRodDriver(log)
	}
	sessions := chrome.NewManager(driver, log)

	adapters := make(map[string]site.Adapter, len(cfg.Retailers))
	siteMaxPages := make(map[string]int, len(cfg.Retailers))
	for _, id := range cfg.Retailers {
		sc := cfg.Site(id)
		adapter, err := site.New(id, site.Options{SearchURL: sc.SearchURL})
		if err != nil {
			return err
		}
		adapters[id] = adapter
		siteMaxPages[id] = sc.MaxPages
	}

	navBackoff := backoff.None()
	if cfg.Navigation.Backoff > 0 {
		navBackoff = backoff.WithJitter(backoff.Constant(cfg.Navigation.Backoff))
	}
	engine := crawler.InitEngine(pool, sessions, sink, crawler.Options{
		Session:       sessionTemplate(cfg.Browser),
		ProxyRequired: cfg.Proxy.Required,
		NavAttempts:   cfg.Navigation.MaxAttempts,
		NavBackoff:    navBackoff,
		ReadyTimeout:  cfg.Navigation.ReadyTimeout,
		MaxPages:      cfg.Scheduler.MaxPages,
		SiteMaxPages:  siteMaxPages,
		StrictPrice:   cfg.Normalize.StrictPrice,
	}, log, m)

	combos := param.Combinations(cfg.Search.Widths, cfg.Search.Ratios, cfg.Search.Diameters)
	retailerRun := parallel.Schedulers(engine, adapters, scheduler.Config{
		DelayMin:     cfg.Scheduler.DelayMin,
		DelayMax:     cfg.Scheduler.DelayMax,
		TaskAttempts: cfg.Scheduler.TaskAttempts,
	}, cfg.Search.Zipcode, combos, log, scheduler.WithMetrics(m))

	log.Info().
		Strs("retailers", cfg.Retailers).
		Int("combinations", len(combos)).
		Str("driver", driver.Name()).
		Msg("starting run")
	_, err = parallel.New(retailerRun, cfg.Concurrency.Retailers, log).Run(ctx, cfg.Retailers)
	return err
}

func sessionTemplate(b config.BrowserConfig) param.Session {
	return param.Session{
		Headless:       b.Headless,
		NoSandbox:      b.NoSandbox,
		Leakless:       b.Leakless,
		Bin:            b.Bin,
		UserAgents:     b.UserAgents,
		AcceptLanguage: b.AcceptLanguage,
		ViewportWidth:  b.ViewportWidth,
		ViewportHeight: b.ViewportHeight,
		ViewportJitter: b.ViewportJitter,
		DefaultTimeout: b.DefaultTimeout,
	}
}

func buildPool(cfg config.ProxyConfig, log zerolog.Logger, m *metrics.Metrics) *proxy.Pool {
	opts := []proxy.Option{
		proxy.WithRetries(cfg.Retries),
		proxy.WithBackoff(backoff.WithJitter(backoff.Exponential(cfg.BackoffBase, cfg.BackoffMax))),
		proxy.WithLogger(log),
		proxy.WithMetrics(m),
	}
	if cfg.ProbeURL != "" {
		opts = append(opts, proxy.WithProber(
			collector.InitCollyProber(cfg.ProbeURL, cfg.ProbeTimeout, collector.WithLogger(log)),
		))
	}
	return proxy.NewPool(cfg.List, proxy.NewLocalForwarder(log), opts...)
}

// buildSink 按配置组合存储,没有启用任何外部存储时退回日志
func buildSink(ctx context.Context, cfg config.SinkConfig, log zerolog.Logger) (persistence.Sink, func(), error) {
	var (
		sinks   persistence.Multi
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Elasticsearch.Enabled {
		client, err := es.InitTypedEsClient[*model.TireRecord](cfg.Elasticsearch, log)
		if err != nil {
			return nil, nil, err
		}
		if err := client.CreateIndexWithMapping(ctx); err != nil {
			return nil, nil, err
		}
		esSink := es.NewSink(client, cfg.Elasticsearch.BatchSize)
		sinks = append(sinks, esSink)
		closers = append(closers, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := esSink.Flush(flushCtx); err != nil {
				log.Error().Err(err).Msg("failed to flush elasticsearch sink")
			}
		})
	}

	if cfg.Mongo.Enabled {
		mongoSink, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, mongoSink)
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mongoSink.Close(closeCtx); err != nil {
				log.Error().Err(err).Msg("failed to disconnect mongo")
			}
		})
	}

	if cfg.Log || len(sinks) == 0 {
		sinks = append(sinks, persistence.NewLog(log))
	}
	if len(sinks) == 1 {
		return sinks[0], closeAll, nil
	}
	return sinks, closeAll, nil
}

func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server enabled")
	return srv
}
