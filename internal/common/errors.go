package common

import (
	"errors"
	"fmt"
)

// ErrProxyExhausted 代理池完整轮转一圈仍没有可用代理
var ErrProxyExhausted = errors.New("all proxies exhausted")

// ConfigurationError 配置错误,例如要求使用代理但没有配置任何代理
type ConfigurationError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Section != "" && e.Field != "" {
		return fmt.Sprintf("configuration error in section '%s', field '%s': %s", e.Section, e.Field, e.Reason)
	} else if e.Section != "" {
		return fmt.Sprintf("configuration error in section '%s': %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func NewConfigurationError(section, field, reason string) *ConfigurationError {
	return &ConfigurationError{Section: section, Field: field, Reason: reason}
}

// ProxyExhaustedError 记录本轮检查过的候选代理数量,errors.Is(err, ErrProxyExhausted) 成立
type ProxyExhaustedError struct {
	Examined int
	LastErr  error
}

func (e *ProxyExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("%s after %d candidates: %v", ErrProxyExhausted, e.Examined, e.LastErr)
	}
	return fmt.Sprintf("%s after %d candidates", ErrProxyExhausted, e.Examined)
}

func (e *ProxyExhaustedError) Is(target error) bool {
	return target == ErrProxyExhausted
}

func (e *ProxyExhaustedError) Unwrap() error {
	return e.LastErr
}

// NavigationError 导航重试耗尽,对当前任务是致命错误
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// PageTransitionError 无法到达目标页
type PageTransitionError struct {
	From   int
	Target int
	Reason string
	Err    error
}

func (e *PageTransitionError) Error() string {
	msg := fmt.Sprintf("page transition %d -> %d failed: %s", e.From, e.Target, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PageTransitionError) Unwrap() error {
	return e.Err
}

// InvalidRecordError 缺少必填字段,Payload 为原始记录
type InvalidRecordError struct {
	Field   string
	Reason  string
	Payload any
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record: field '%s' %s (payload: %+v)", e.Field, e.Reason, e.Payload)
}

// SinkError 持久化失败,本层不重试
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// ErrorType 返回用于日志和指标标签的错误分类
func ErrorType(err error) string {
	if err == nil {
		return "none"
	}
	var (
		cfgErr  *ConfigurationError
		navErr  *NavigationError
		pageErr *PageTransitionError
		recErr  *InvalidRecordError
		sinkErr *SinkError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.Is(err, ErrProxyExhausted):
		return "proxy_exhausted"
	case errors.As(err, &navErr):
		return "navigation"
	case errors.As(err, &pageErr):
		return "page_transition"
	case errors.As(err, &recErr):
		return "invalid_record"
	case errors.As(err, &sinkErr):
		return "sink"
	default:
		return "other"
	}
}

// Retryable 任务级重试只针对导航和翻页失败
func Retryable(err error) bool {
	var (
		navErr  *NavigationError
		pageErr *PageTransitionError
	)
	return errors.As(err, &navErr) || errors.As(err, &pageErr)
}
