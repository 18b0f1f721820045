// Package chrometest 提供不需要浏览器的内存会话,页面内容用 goquery 解析
package chrometest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/PuerkitoBio/goquery"
)

// ErrTimeout WaitVisible 找不到元素时返回,模拟等待超时
var ErrTimeout = errors.New("chrometest: wait timed out")

// Session 实现 chrome.Session
// Routes 保存 URL 到页面 HTML 的映射, OnClick 按选择器注册点击行为
type Session struct {
	mu sync.Mutex

	Routes  map[string]string
	OnClick map[string]func(s *Session) error
	// NavigateErrs 依次作为 Navigate 的返回值,用完后正常导航
	NavigateErrs []error
	// EvalFunc 为 nil 时 Eval 返回空字符串
	EvalFunc func(js string, args ...any) (string, error)
	Timeout  time.Duration

	URL         string
	Navigations []string
	Clicks      []string
	Inputs      map[string]string
	Evals       []string
	Closed      bool

	html string
}

var _ chrome.Session = (*Session)(nil)

func New() *Session {
	return &Session{
		Routes:  make(map[string]string),
		OnClick: make(map[string]func(s *Session) error),
		Inputs:  make(map[string]string),
		Timeout: time.Second,
	}
}

// SetHTML 直接替换当前页面内容
func (s *Session) SetHTML(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

func (s *Session) doc() (*goquery.Document, error) {
	s.mu.Lock()
	html := s.html
	s.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *Session) find(selector string) (*goquery.Selection, error) {
	doc, err := s.doc()
	if err != nil {
		return nil, err
	}
	return doc.Find(selector), nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigations = append(s.Navigations, url)
	if len(s.NavigateErrs) > 0 {
		err := s.NavigateErrs[0]
		s.NavigateErrs = s.NavigateErrs[1:]
		if err != nil {
			return err
		}
	}
	html, ok := s.Routes[url]
	if !ok {
		return fmt.Errorf("chrometest: no route for %s", url)
	}
	s.URL = url
	s.html = html
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("wait visible %s: %w", selector, ErrTimeout)
	}
	return nil
}

func (s *Session) Exists(_ context.Context, selector string) (bool, error) {
	sel, err := s.find(selector)
	if err != nil {
		return false, err
	}
	return sel.Length() > 0, nil
}

func (s *Session) Count(_ context.Context, selector string) (int, error) {
	sel, err := s.find(selector)
	if err != nil {
		return 0, err
	}
	return sel.Length(), nil
}

func (s *Session) Text(_ context.Context, selector string) (string, error) {
	sel, err := s.find(selector)
	if err != nil {
		return "", err
	}
	if sel.Length() == 0 {
		return "", fmt.Errorf("%s: %w", selector, chrome.ErrNotFound)
	}
	return sel.First().Text(), nil
}

func (s *Session) Click(_ context.Context, selector string) error {
	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("%s: %w", selector, chrome.ErrNotFound)
	}
	s.mu.Lock()
	s.Clicks = append(s.Clicks, selector)
	handler := s.OnClick[selector]
	s.mu.Unlock()
	if handler != nil {
		return handler(s)
	}
	return nil
}

func (s *Session) Enabled(_ context.Context, selector string) (bool, error) {
	sel, err := s.find(selector)
	if err != nil {
		return false, err
	}
	if sel.Length() == 0 {
		return false, fmt.Errorf("%s: %w", selector, chrome.ErrNotFound)
	}
	first := sel.First()
	_, disabled := first.Attr("disabled")
	aria, _ := first.Attr("aria-disabled")
	return !disabled && aria != "true", nil
}

func (s *Session) Input(_ context.Context, selector, text string) error {
	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("%s: %w", selector, chrome.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inputs[selector] += text
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

func (s *Session) Eval(_ context.Context, js string, args ...any) (string, error) {
	s.mu.Lock()
	s.Evals = append(s.Evals, js)
	fn := s.EvalFunc
	s.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(js, args...)
}

func (s *Session) DefaultTimeout() time.Duration {
	return s.Timeout
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}
