// Package persistence 记录的存储出口,每条规范记录调用一次 Save
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"github.com/rs/zerolog"
)

// Sink 需要能容忍重复提交,这里不保证唯一性
type Sink interface {
	Save(ctx context.Context, rec model.TireRecord) error
}

// Flusher 带缓冲的 Sink 实现它,引擎在每页结束时调用
type Flusher interface {
	Flush(ctx context.Context) error
}

// Named 用于错误信息和日志
type Named interface {
	Name() string
}

// NameOf 返回 Sink 名称,未实现 Named 时使用类型名
func NameOf(s Sink) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Func 把函数适配为 Sink
type Func func(ctx context.Context, rec model.TireRecord) error

func (f Func) Save(ctx context.Context, rec model.TireRecord) error {
	return f(ctx, rec)
}

func (f Func) Name() string { return "func" }

// Multi 依次写入多个 Sink,全部尝试后合并错误
type Multi []Sink

func (m Multi) Save(ctx context.Context, rec model.TireRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", NameOf(s), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", NameOf(s), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Name() string {
	if len(m) == 1 {
		return NameOf(m[0])
	}
	return "multi"
}

// Log 把记录写入结构化日志
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "log_sink").Logger()}
}

func (l *Log) Save(_ context.Context, rec model.TireRecord) error {
	l.logger.Info().
		Str("retailer", rec.Retailer).
		Str("brand", rec.Brand).
		Str("model", rec.Model).
		Str("size", rec.Size).
		Float64("price", rec.Price).
		Str("zipcode", rec.Zipcode).
		Str("url", rec.URL).
		Msg("tire record")
	return nil
}

func (l *Log) Name() string { return "log" }
