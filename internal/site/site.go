// Package site 各零售商的适配器: 搜索 URL 模板、就绪条件、分页控件和字段提取
package site

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"

	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/param"
)

const (
	TireRack     = "tirerack"
	Walmart      = "walmart"
	DiscountTire = "discounttire"
	BJs          = "bjs"
)

// Adapter 一个零售商的站点能力,引擎只通过这个接口访问页面
type Adapter interface {
	ID() string
	SearchURL(zipcode string, c param.Combination) (string, error)
	Readiness() navigation.Readiness
	Locator() pagination.Locator
	// Extract 解析当前页的商品卡片,字段缺失的卡片照常返回,由 normalize 判定
	Extract(ctx context.Context, sess chrome.Session, c param.Combination) ([]entity.RawListing, error)
}

// Preparer 导航完成后、翻页之前的页面准备,例如关闭弹窗、输入邮编、滚动加载
type Preparer interface {
	Prepare(ctx context.Context, sess chrome.Session, zipcode string) error
}

// Options 站点可配置项,零值使用内置默认
type Options struct {
	// SearchURL text/template 模板,字段 .Width .Ratio .Diameter .Zipcode
	SearchURL string
	Scroll    param.Scroll
}

type factory func(opts Options) (Adapter, error)

var registry = map[string]factory{
	TireRack:     newTireRack,
	Walmart:      newWalmart,
	DiscountTire: newDiscountTire,
	BJs:          newBJs,
}

// New 按 id 创建适配器
func New(id string, opts Options) (Adapter, error) {
	f, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown retailer %q", id)
	}
	if opts.Scroll == (param.Scroll{}) {
		opts.Scroll = param.DefaultScroll()
	}
	return f(opts)
}

// IDs 所有已注册的零售商,按字母排序
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type searchData struct {
	Width    int
	Ratio    int
	Diameter string
	Zipcode  string
}

// searchTemplate 解析后的搜索 URL 模板,Diameter 按 17 / 17.5 的形式渲染
type searchTemplate struct {
	id   string
	tmpl *template.Template
}

func newSearchTemplate(id, custom, fallback string) (searchTemplate, error) {
	text := fallback
	if custom != "" {
		text = custom
	}
	tmpl, err := template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return searchTemplate{}, fmt.Errorf("failed to parse search url template for %s: %w", id, err)
	}
	return searchTemplate{id: id, tmpl: tmpl}, nil
}

func (s searchTemplate) ID() string {
	return s.id
}

func (s searchTemplate) SearchURL(zipcode string, c param.Combination) (string, error) {
	var buf bytes.Buffer
	err := s.tmpl.Execute(&buf, searchData{
		Width:    c.Width,
		Ratio:    c.Ratio,
		Diameter: c.DiameterString(),
		Zipcode:  zipcode,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render search url for %s: %w", s.id, err)
	}
	return buf.String(), nil
}
