package chrome

import (
	"context"
	"errors"
	"time"

	"github.com/LouYuanbo1/tirescraper/param"
)

// ErrNotFound 选择器没有匹配到元素
var ErrNotFound = errors.New("element not found")

// Session 一个隔离的浏览器会话,所有等待操作默认使用 DefaultTimeout
// timeout 参数为 0 时使用默认值
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	Text(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
	Enabled(ctx context.Context, selector string) (bool, error)
	Input(ctx context.Context, selector, text string) error
	HTML(ctx context.Context) (string, error)
	// Eval 执行函数形式的 JS,例如 `(sel) => document.querySelectorAll(sel).length`,返回值转为字符串
	Eval(ctx context.Context, js string, args ...any) (string, error)
	DefaultTimeout() time.Duration
	Close() error
}

// Driver 启动浏览器并返回已经应用指纹的会话
type Driver interface {
	Name() string
	Launch(ctx context.Context, opts param.Session, fp Fingerprint) (Session, error)
}

func timeoutOr(timeout, fallback time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if fallback > 0 {
		return fallback
	}
	return 30 * time.Second
}
