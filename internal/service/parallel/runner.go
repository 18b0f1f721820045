// Package parallel 在多个零售商之间并发执行抓取,每个零售商内部仍然串行
package parallel

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/tirescraper/internal/service/crawler"
	"github.com/LouYuanbo1/tirescraper/internal/service/scheduler"
	"github.com/LouYuanbo1/tirescraper/internal/site"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RetailerFunc 执行一个零售商的全部组合
type RetailerFunc func(ctx context.Context, retailer string) (scheduler.Summary, error)

// Runner 同时最多运行 limit 个零售商,某个零售商出错不会取消其他零售商
type Runner struct {
	run    RetailerFunc
	limit  int
	logger zerolog.Logger
}

func New(run RetailerFunc, limit int, logger zerolog.Logger) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{
		run:    run,
		limit:  limit,
		logger: logger.With().Str("component", "runner").Logger(),
	}
}

// Run 返回的 Summary 与 retailers 顺序一致,错误按零售商合并
func (r *Runner) Run(ctx context.Context, retailers []string) ([]scheduler.Summary, error) {
	summaries := make([]scheduler.Summary, len(retailers))
	errs := make([]error, len(retailers))

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, retailer := range retailers {
		g.Go(func() error {
			sum, err := r.run(ctx, retailer)
			sum.Retailer = retailer
			summaries[i] = sum
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", retailer, err)
				r.logger.Error().Err(err).Str("retailer", retailer).Msg("retailer run stopped")
			}
			return nil
		})
	}
	_ = g.Wait()

	total := scheduler.Summary{}
	for _, sum := range summaries {
		total.Total += sum.Total
		total.Processed += sum.Processed
		total.Succeeded += sum.Succeeded
		total.Failed += sum.Failed
	}
	r.logger.Info().
		Int("retailers", len(retailers)).
		Int("total", total.Total).
		Int("processed", total.Processed).
		Int("succeeded", total.Succeeded).
		Int("failed", total.Failed).
		Msg("all retailers finished")
	return summaries, errors.Join(errs...)
}

// Schedulers 把引擎接到每个零售商自己的调度器上
// adapters 中没有的零售商返回配置错误,不影响其他零售商
func Schedulers(
	engine crawler.Engine,
	adapters map[string]site.Adapter,
	cfg scheduler.Config,
	zipcode string,
	combos []param.Combination,
	logger zerolog.Logger,
	opts ...scheduler.Option,
) RetailerFunc {
	return func(ctx context.Context, retailer string) (scheduler.Summary, error) {
		adapter, ok := adapters[retailer]
		if !ok {
			return scheduler.Summary{Retailer: retailer, Total: len(combos)},
				fmt.Errorf("no site adapter for retailer %q", retailer)
		}
		sched := scheduler.New(func(ctx context.Context, task *param.ScrapeTask) error {
			return engine.RunTask(ctx, task, adapter)
		}, cfg, logger, opts...)
		return sched.Run(ctx, retailer, zipcode, combos)
	}
}
