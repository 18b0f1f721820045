// Package backoff 提供可注入的退避策略,测试中可以用 None 避免真实等待
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy 根据重试次数(从1开始)返回下一次重试前的等待时间
type Policy func(attempt int) time.Duration

// None 不等待
func None() Policy {
	return func(int) time.Duration { return 0 }
}

// Constant 固定等待
func Constant(d time.Duration) Policy {
	return func(int) time.Duration { return d }
}

// Exponential base * 2^(attempt-1), 上限为 max
func Exponential(base, max time.Duration) Policy {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
		if delay > max || delay <= 0 {
			delay = max
		}
		return delay
	}
}

// WithJitter 在原有等待时间上最多增加 10% 的随机抖动
func WithJitter(p Policy) Policy {
	return func(attempt int) time.Duration {
		delay := p(attempt)
		if ms := delay.Milliseconds() / 10; ms > 0 {
			delay += time.Duration(rand.Int64N(ms)) * time.Millisecond
		}
		return delay
	}
}

// Sleep 等待 d,ctx 取消时提前返回
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
