package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/infra/backoff"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/rs/zerolog"
)

// TaskFunc 执行一个任务直到结束,返回的错误只影响当前任务
type TaskFunc func(ctx context.Context, task *param.ScrapeTask) error

type Config struct {
	DelayMin time.Duration
	DelayMax time.Duration
	// TaskAttempts 导航和翻页失败时整个任务最多执行的次数
	TaskAttempts int
}

// Summary 一次运行的结果, 正常结束时 Processed == Total
type Summary struct {
	Retailer  string
	Total     int
	Processed int
	Succeeded int
	Failed    int
}

// Scheduler 在一个零售商内部串行执行组合任务,任务失败不会中断运行
type Scheduler struct {
	run     TaskFunc
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Scheduler)

func WithRand(rnd *rand.Rand) Option {
	return func(s *Scheduler) { s.rnd = rnd }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(run TaskFunc, cfg Config, logger zerolog.Logger, opts ...Option) *Scheduler {
	if cfg.TaskAttempts < 1 {
		cfg.TaskAttempts = 1
	}
	s := &Scheduler{
		run:    run,
		cfg:    cfg,
		logger: logger.With().Str("component", "scheduler").Logger(),
		sleep:  backoff.Sleep,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 按给定顺序逐个执行组合,每个任务结束后随机等待 [DelayMin, DelayMax]
// ctx 取消时在任务之间停止,返回已处理的统计和 ctx 的错误
func (s *Scheduler) Run(ctx context.Context, retailer, zipcode string, combos []param.Combination) (Summary, error) {
	sum := Summary{Retailer: retailer, Total: len(combos)}
	log := s.logger.With().Str("retailer", retailer).Str("zipcode", zipcode).Logger()
	log.Info().Int("total", sum.Total).Msg("run started")

	for _, c := range combos {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("processed", sum.Processed).Int("total", sum.Total).Msg("run cancelled")
			return sum, err
		}

		task := param.NewScrapeTask(retailer, zipcode, c)
		s.execute(ctx, task, log)

		sum.Processed++
		if task.Status == param.TaskSucceeded {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		s.metrics.SetProcessed(retailer, sum.Processed)
		log.Info().
			Int("processed", sum.Processed).
			Int("total", sum.Total).
			Str("combination", c.String()).
			Str("status", string(task.Status)).
			Msgf("progress %d/%d", sum.Processed, sum.Total)

		if err := s.sleep(ctx, s.delay()); err != nil {
			log.Warn().Int("processed", sum.Processed).Int("total", sum.Total).Msg("run cancelled")
			return sum, err
		}
	}

	log.Info().
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Msg("run completed")
	return sum, nil
}

// execute 执行一个任务,导航和翻页失败时用新会话重试整个任务
func (s *Scheduler) execute(ctx context.Context, task *param.ScrapeTask, log zerolog.Logger) {
	start := time.Now()
	for attempt := 1; attempt <= s.cfg.TaskAttempts; attempt++ {
		task.Attempt = attempt
		task.Page = 0
		task.Status = param.TaskRunning
		task.StartedAt = time.Now()
		task.Err = s.run(ctx, task)
		if task.Err == nil {
			task.Status = param.TaskSucceeded
			break
		}
		task.Status = param.TaskFailed
		if !common.Retryable(task.Err) || ctx.Err() != nil || attempt == s.cfg.TaskAttempts {
			break
		}
		log.Warn().
			Err(task.Err).
			Str("combination", task.Combination.String()).
			Int("page", task.Page).
			Int("attempt", attempt).
			Msg("task failed, relaunching")
	}

	s.metrics.ObserveTask(task.Retailer, string(task.Status), time.Since(start))
	if task.Status == param.TaskSucceeded {
		log.Info().
			Str("combination", task.Combination.String()).
			Int("attempt", task.Attempt).
			Dur("elapsed", time.Since(start)).
			Msg("task succeeded")
		return
	}
	errType := common.ErrorType(task.Err)
	s.metrics.IncError(errType)
	log.Error().
		Err(task.Err).
		Str("error_type", errType).
		Str("combination", task.Combination.String()).
		Int("page", task.Page).
		Int("attempt", task.Attempt).
		Msg("task failed")
}

func (s *Scheduler) delay() time.Duration {
	lo, hi := s.cfg.DelayMin, s.cfg.DelayMax
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + time.Duration(s.rnd.Int64N(int64(hi-lo)+1))
}
