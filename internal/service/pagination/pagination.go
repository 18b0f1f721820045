package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Traversal 分页状态机: onPage(n) 或 atEnd
// 一个 Traversal 只服务一个任务的一个会话,不支持并发调用
type Traversal struct {
	sess    chrome.Session
	loc     Locator
	logger  zerolog.Logger
	state   PageState
	atEnd   bool
	started bool

	maxPages     int
	waitTimeout  time.Duration
	pollInterval time.Duration
}

type Option func(*Traversal)

// WithMaxPages 最多访问的页数, 0 表示不限制
func WithMaxPages(n int) Option {
	return func(t *Traversal) { t.maxPages = n }
}

// WithWaitTimeout 翻页后等待结果重新出现的上限,默认使用会话超时
func WithWaitTimeout(d time.Duration) Option {
	return func(t *Traversal) { t.waitTimeout = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(t *Traversal) { t.pollInterval = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Traversal) { t.logger = logger.With().Str("component", "pagination").Logger() }
}

func New(sess chrome.Session, loc Locator, opts ...Option) *Traversal {
	t := &Traversal{
		sess:         sess,
		loc:          loc,
		logger:       zerolog.Nop(),
		pollInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.waitTimeout <= 0 {
		t.waitTimeout = sess.DefaultTimeout()
	}
	return t
}

// State 当前分页状态
func (t *Traversal) State() PageState {
	return t.state
}

// AtEnd 是否已经没有后续页
func (t *Traversal) AtEnd() bool {
	return t.atEnd
}

// Discover 读取当前页码和总页数
// 总页数优先取末页指示,其次数页码控件,都没有时为 1 且 TotalKnown=false,由下一页按钮决定是否继续
func (t *Traversal) Discover(ctx context.Context) (PageState, error) {
	current := 1
	if n, ok, err := t.readNumber(ctx, t.loc.CurrentPageSelector); err != nil {
		return t.state, err
	} else if ok {
		current = n
	}

	total, known := 1, false
	if n, ok, err := t.readNumber(ctx, t.loc.LastPageSelector); err != nil {
		return t.state, err
	} else if ok {
		total, known = n, true
	} else if t.loc.PageControlSelector != "" {
		count, err := t.sess.Count(ctx, t.loc.PageControlSelector)
		if err != nil {
			return t.state, fmt.Errorf("failed to count page controls: %w", err)
		}
		if count > 0 {
			total, known = count, true
		}
	}
	if total < current {
		total = current
	}

	t.started = true
	t.state = PageState{Current: current, Total: total, TotalKnown: known}
	hasMore, err := t.canAdvance(ctx)
	if err != nil {
		return t.state, err
	}
	t.state.HasMore = hasMore
	t.atEnd = !hasMore
	t.logger.Debug().Str("state", t.state.String()).Msg("pagination discovered")
	return t.state, nil
}

// canAdvance 判断 onPage(n) 是否还有下一页: 总页数未超出, 下一页控件存在且可用
func (t *Traversal) canAdvance(ctx context.Context) (bool, error) {
	if t.maxPages > 0 && t.state.Current >= t.maxPages {
		return false, nil
	}
	if t.state.TotalKnown && t.state.Current >= t.state.Total {
		return false, nil
	}
	if t.loc.NextSelector == "" {
		return false, nil
	}
	exists, err := t.sess.Exists(ctx, t.loc.NextSelector)
	if err != nil {
		return false, fmt.Errorf("failed to locate next control: %w", err)
	}
	if !exists {
		return false, nil
	}
	enabled, err := t.sess.Enabled(ctx, t.loc.NextSelector)
	if err != nil {
		return false, fmt.Errorf("failed to read next control state: %w", err)
	}
	return enabled, nil
}

// Next 从 onPage(n) 前进到 onPage(n+k), k>=1;没有下一页时进入 atEnd 并返回 false
func (t *Traversal) Next(ctx context.Context) (bool, error) {
	if !t.started {
		if _, err := t.Discover(ctx); err != nil {
			return false, err
		}
	}
	if t.atEnd {
		return false, nil
	}
	ok, err := t.canAdvance(ctx)
	if err != nil {
		return false, t.transitionError(t.state.Current+1, "next control unavailable", err)
	}
	if !ok {
		t.end()
		return false, nil
	}

	from := t.state.Current
	before, err := t.snapshot(ctx)
	if err != nil {
		return false, t.transitionError(from+1, "failed to read results before click", err)
	}
	if err := t.sess.Click(ctx, t.loc.NextSelector); err != nil {
		return false, t.transitionError(from+1, "failed to click next control", err)
	}
	if err := t.settle(ctx, from+1, before); err != nil {
		return false, err
	}
	more, err := t.canAdvance(ctx)
	if err != nil {
		t.logger.Debug().Err(err).Int("page", t.state.Current).Msg("failed to read next control after advancing")
		more = false
	}
	t.state.HasMore = more
	return true, nil
}

// GoToPage 跳到目标页: 有直达链接时点击链接,否则重复 Next
// 目标超出总页数、小于当前页或提前到达末页时返回 PageTransitionError
func (t *Traversal) GoToPage(ctx context.Context, target int) error {
	if !t.started {
		if _, err := t.Discover(ctx); err != nil {
			return err
		}
	}
	from := t.state.Current
	switch {
	case target == from:
		return nil
	case target < from:
		return t.transitionError(target, "target is before the current page", nil)
	case t.state.TotalKnown && target > t.state.Total:
		return t.transitionError(target, fmt.Sprintf("target exceeds discovered total %d", t.state.Total), nil)
	case t.maxPages > 0 && target > t.maxPages:
		return t.transitionError(target, fmt.Sprintf("target exceeds page limit %d", t.maxPages), nil)
	}

	if link := t.loc.pageLink(target); link != "" {
		exists, err := t.sess.Exists(ctx, link)
		if err != nil {
			return t.transitionError(target, "failed to locate page link", err)
		}
		if exists {
			before, err := t.snapshot(ctx)
			if err != nil {
				return t.transitionError(target, "failed to read results before click", err)
			}
			if err := t.sess.Click(ctx, link); err != nil {
				return t.transitionError(target, "failed to click page link", err)
			}
			if err := t.settle(ctx, target, before); err != nil {
				return err
			}
			if t.state.Current != target {
				return t.transitionError(target, fmt.Sprintf("landed on page %d", t.state.Current), nil)
			}
			return nil
		}
	}

	// 每次 Next 至少前进一页,循环次数不超过 target-from
	for t.state.Current < target {
		advanced, err := t.Next(ctx)
		if err != nil {
			return err
		}
		if !advanced {
			return t.transitionError(target, fmt.Sprintf("reached the last page at %d", t.state.Current), nil)
		}
	}
	if t.state.Current != target {
		return t.transitionError(target, fmt.Sprintf("overshot to page %d", t.state.Current), nil)
	}
	return nil
}

// Walk 按严格递增顺序访问每一页,当前页的 fn 返回后才请求下一页
// 返回访问过的页数
func (t *Traversal) Walk(ctx context.Context, fn func(ctx context.Context, state PageState) error) (int, error) {
	if _, err := t.Discover(ctx); err != nil {
		return 0, err
	}
	visited := 0
	for {
		if err := ctx.Err(); err != nil {
			return visited, err
		}
		if err := fn(ctx, t.state); err != nil {
			return visited, err
		}
		visited++
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		advanced, err := t.Next(ctx)
		if err != nil {
			return visited, err
		}
		if !advanced {
			t.logger.Debug().Int("pages", visited).Msg("pagination finished")
			return visited, nil
		}
	}
}

// settle 等待结果容器重新出现,并确认结果内容相对点击前发生了变化
// 配置了页码指示时还要求页码严格增加;没有页码指示时,内容变化即视为前进一页
func (t *Traversal) settle(ctx context.Context, expected int, before string) error {
	from := t.state.Current
	if t.loc.ResultsSelector != "" {
		if err := t.sess.WaitVisible(ctx, t.loc.ResultsSelector, t.waitTimeout); err != nil {
			return t.transitionError(expected, "results did not repopulate", err)
		}
	}

	deadline := time.Now().Add(t.waitTimeout)
	for {
		after, err := t.snapshot(ctx)
		if err != nil {
			return t.transitionError(expected, "failed to read results after click", err)
		}
		changed := after != before

		n, ok := 0, false
		if changed && t.loc.CurrentPageSelector != "" {
			n, ok, err = t.readNumber(ctx, t.loc.CurrentPageSelector)
			if err != nil {
				return t.transitionError(expected, "failed to read current page", err)
			}
		}
		switch {
		case changed && t.loc.CurrentPageSelector == "":
			t.advanceTo(expected)
			return nil
		case changed && ok && n > from:
			t.advanceTo(n)
			return nil
		}

		if !time.Now().Before(deadline) {
			if !changed {
				return t.transitionError(expected, "results did not change after click", nil)
			}
			reported := "no page number"
			if ok {
				reported = fmt.Sprintf("page %d", n)
			}
			return t.transitionError(expected, "current page did not advance, saw "+reported, nil)
		}
		timer := time.NewTimer(t.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return t.transitionError(expected, "interrupted while waiting for page change", ctx.Err())
		case <-timer.C:
		}
	}
}

// snapshot 结果区域的 HTML;没有结果选择器时取整页
func (t *Traversal) snapshot(ctx context.Context) (string, error) {
	html, err := t.sess.HTML(ctx)
	if err != nil {
		return "", err
	}
	if t.loc.ResultsSelector == "" {
		return html, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	doc.Find(t.loc.ResultsSelector).Each(func(_ int, sel *goquery.Selection) {
		outer, _ := goquery.OuterHtml(sel)
		b.WriteString(outer)
	})
	return b.String(), nil
}

func (t *Traversal) advanceTo(n int) {
	t.state.Current = n
	if t.state.Total < n {
		t.state.Total = n
	}
	t.logger.Debug().Str("state", t.state.String()).Msg("page advanced")
}

func (t *Traversal) end() {
	t.atEnd = true
	t.state.HasMore = false
}

func (t *Traversal) readNumber(ctx context.Context, selector string) (int, bool, error) {
	if selector == "" {
		return 0, false, nil
	}
	exists, err := t.sess.Exists(ctx, selector)
	if err != nil || !exists {
		return 0, false, err
	}
	text, err := t.sess.Text(ctx, selector)
	if err != nil {
		if errors.Is(err, chrome.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	n, ok := parsePageNumber(text)
	return n, ok, nil
}

func (t *Traversal) transitionError(target int, reason string, err error) error {
	return &common.PageTransitionError{From: t.state.Current, Target: target, Reason: reason, Err: err}
}
