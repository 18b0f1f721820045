package site

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/PuerkitoBio/goquery"
)

// document 读取当前页面并用 goquery 解析
func document(ctx context.Context, sess chrome.Session) (*goquery.Document, error) {
	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	return doc, nil
}

// text 第一个匹配元素的文本,没有匹配时为空
func text(card *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(card.Find(selector).First().Text()), " ")
}

func attr(card *goquery.Selection, selector, name string) string {
	v, _ := card.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

// labeled 在一组规格条目里找以 label 开头的那条,例如 "Size: 225/45R17"
func labeled(card *goquery.Selection, selector, label string) string {
	var value string
	card.Find(selector).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		t := strings.Join(strings.Fields(li.Text()), " ")
		if i := strings.Index(t, label); i >= 0 {
			value = strings.TrimSpace(t[i+len(label):])
			return false
		}
		return true
	})
	return value
}

// absolute 把站内相对链接补全为绝对地址
func absolute(base, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

const autoScrollJS = `(distance, interval, maxSteps) => new Promise((resolve) => {
	let total = 0;
	let steps = 0;
	const timer = setInterval(() => {
		window.scrollBy(0, distance);
		total += distance;
		steps++;
		if (total >= document.body.scrollHeight - window.innerHeight || steps >= maxSteps) {
			clearInterval(timer);
			resolve(steps);
		}
	}, interval);
})`

// autoScroll 分步滚动到底部,触发懒加载的商品卡片
func autoScroll(ctx context.Context, sess chrome.Session, s param.Scroll) error {
	if s.MaxSteps <= 0 {
		return nil
	}
	if _, err := sess.Eval(ctx, autoScrollJS, s.Distance, s.Interval.Milliseconds(), s.MaxSteps); err != nil {
		return fmt.Errorf("auto scroll failed: %w", err)
	}
	return nil
}
