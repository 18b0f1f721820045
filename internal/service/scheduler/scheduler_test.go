package scheduler

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/infra/metrics"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = Config{DelayMin: 3 * time.Second, DelayMax: 6 * time.Second, TaskAttempts: 1}

type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newScheduler(run TaskFunc, c Config, rec *recorder, logger zerolog.Logger, opts ...Option) *Scheduler {
	base := []Option{WithSleep(rec.sleep), WithRand(rand.New(rand.NewPCG(1, 2)))}
	return New(run, c, logger, append(base, opts...)...)
}

func TestRunIsolatesFailures(t *testing.T) {
	combos := []param.Combination{
		{Width: 225, Ratio: 40, Diameter: 17},
		{Width: 225, Ratio: 45, Diameter: 17},
	}
	var calls []string
	run := func(_ context.Context, task *param.ScrapeTask) error {
		calls = append(calls, task.Combination.String())
		if task.Combination.Ratio == 40 {
			task.Page = 1
			return &common.NavigationError{URL: "https://tires.test", Attempts: 5, Err: errors.New("net::ERR_TIMED_OUT")}
		}
		return nil
	}
	var logs bytes.Buffer
	rec := &recorder{}
	m := metrics.New()
	s := newScheduler(run, Config{DelayMin: cfg.DelayMin, DelayMax: cfg.DelayMax, TaskAttempts: 2}, rec, zerolog.New(&logs), WithMetrics(m))

	sum, err := s.Run(context.Background(), "walmart", "10001", combos)
	require.NoError(t, err)
	assert.Equal(t, Summary{Retailer: "walmart", Total: 2, Processed: 2, Succeeded: 1, Failed: 1}, sum)

	// 导航失败可重试,第一个组合执行了两次
	assert.Equal(t, []string{"225-40-17", "225-40-17", "225-45-17"}, calls)

	// 成功和失败之后都有随机等待
	require.Len(t, rec.delays, 2)
	for _, d := range rec.delays {
		assert.GreaterOrEqual(t, d, cfg.DelayMin)
		assert.LessOrEqual(t, d, cfg.DelayMax)
	}

	out := logs.String()
	assert.Contains(t, out, `"message":"task failed"`)
	assert.Contains(t, out, `"combination":"225-40-17"`)
	assert.Contains(t, out, `"error_type":"navigation"`)
	assert.Contains(t, out, `"retailer":"walmart"`)
	assert.Contains(t, out, `"page":1`)
	assert.Contains(t, out, "progress 2/2")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksProcessed.WithLabelValues("walmart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("walmart", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("walmart", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("navigation")))
}

func TestRunDoesNotRetryNonTransientErrors(t *testing.T) {
	errs := []error{
		common.NewConfigurationError("proxy", "list", "proxies are required"),
		&common.ProxyExhaustedError{Examined: 2},
		&common.SinkError{Sink: "mongo", Err: errors.New("timeout")},
	}
	for _, taskErr := range errs {
		t.Run(common.ErrorType(taskErr), func(t *testing.T) {
			calls := 0
			run := func(context.Context, *param.ScrapeTask) error {
				calls++
				return taskErr
			}
			s := newScheduler(run, Config{TaskAttempts: 3}, &recorder{}, zerolog.Nop())
			sum, err := s.Run(context.Background(), "bjs", "10001", []param.Combination{{Width: 235, Ratio: 45, Diameter: 17.5}})
			require.NoError(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, 1, sum.Failed)
		})
	}
}

func TestRunRetriedTaskCanSucceed(t *testing.T) {
	var attempts []int
	run := func(_ context.Context, task *param.ScrapeTask) error {
		attempts = append(attempts, task.Attempt)
		if task.Attempt == 1 {
			return &common.PageTransitionError{From: 1, Target: 2, Reason: "results did not repopulate"}
		}
		return nil
	}
	s := newScheduler(run, Config{TaskAttempts: 3}, &recorder{}, zerolog.Nop())
	sum, err := s.Run(context.Background(), "tirerack", "10001", []param.Combination{{Width: 225, Ratio: 45, Diameter: 17}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Zero(t, sum.Failed)
}

func TestRunStopsBetweenTasksOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	combos := param.Combinations([]int{225, 235}, []int{40}, []float64{17})
	calls := 0
	run := func(context.Context, *param.ScrapeTask) error {
		calls++
		cancel()
		return nil
	}
	rec := &recorder{}
	sum, err := newScheduler(run, cfg, rec, zerolog.Nop()).Run(ctx, "discounttire", "10001", combos)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Summary{Retailer: "discounttire", Total: 2, Processed: 1, Succeeded: 1}, sum)
}

func TestRunEmptyCombinations(t *testing.T) {
	run := func(context.Context, *param.ScrapeTask) error {
		t.Fatal("no task expected")
		return nil
	}
	sum, err := newScheduler(run, cfg, &recorder{}, zerolog.Nop()).Run(context.Background(), "walmart", "10001", nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Retailer: "walmart"}, sum)
}

func TestDelayRange(t *testing.T) {
	s := New(nil, Config{DelayMin: 2 * time.Second, DelayMax: 2 * time.Second}, zerolog.Nop())
	assert.Equal(t, 2*time.Second, s.delay())

	s = New(nil, cfg, zerolog.Nop(), WithRand(rand.New(rand.NewPCG(7, 7))))
	seen := map[bool]int{}
	for range 200 {
		d := s.delay()
		require.GreaterOrEqual(t, d, cfg.DelayMin)
		require.LessOrEqual(t, d, cfg.DelayMax)
		seen[d < 4500*time.Millisecond]++
	}
	// 分布覆盖区间两侧
	assert.Positive(t, seen[true])
	assert.Positive(t, seen[false])
}

func TestTaskIdentityInLogs(t *testing.T) {
	var logs bytes.Buffer
	run := func(_ context.Context, task *param.ScrapeTask) error {
		return errors.New("boom")
	}
	_, err := newScheduler(run, cfg, &recorder{}, zerolog.New(&logs)).
		Run(context.Background(), "bjs", "94105", []param.Combination{{Width: 235, Ratio: 45, Diameter: 17.5}})
	require.NoError(t, err)
	line := ""
	for _, l := range strings.Split(logs.String(), "\n") {
		if strings.Contains(l, `"message":"task failed"`) {
			line = l
		}
	}
	require.NotEmpty(t, line)
	for _, want := range []string{`"retailer":"bjs"`, `"zipcode":"94105"`, `"combination":"235-45-17.5"`, `"attempt":1`, `"error_type":"other"`} {
		assert.Contains(t, line, want)
	}
}
