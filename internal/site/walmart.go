package site

import (
	"context"
	"regexp"
	"strings"

	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/PuerkitoBio/goquery"
)

const (
	walmartHost      = "https://www.walmart.com"
	walmartSearchURL = walmartHost + "/search?q={{.Width}}%2F{{.Ratio}}r{{.Diameter}}+tires"
	walmartCard      = "div[data-item-id]"
	walmartPager     = `nav[aria-label="pagination"]`
)

// knownBrands 标题里出现的品牌,按出现位置最靠前的匹配
var knownBrands = []string{
	"Continental", "Pirelli", "Bridgestone", "Kumho", "Nexen", "Goodyear", "Yokohama", "Hankook", "Michelin",
	"Falken", "Cooper", "General", "GT Radial", "Nokian", "Kenda", "Firestone", "Dunlop", "Sailun", "Lexani",
	"Sumitomo", "Fullway",
}

var (
	sizePattern      = regexp.MustCompile(`(?i)\d{3}/\d{2,3}[A-Z]*R\d{2}(?:\.\d)?`)
	loadRangePattern = regexp.MustCompile(`(?i)\b(XL|SL|C|D|E|F|RF)\b`)
)

type walmart struct {
	searchTemplate
	scroll param.Scroll
}

func newWalmart(opts Options) (Adapter, error) {
	tmpl, err := newSearchTemplate(Walmart, opts.SearchURL, walmartSearchURL)
	if err != nil {
		return nil, err
	}
	return &walmart{searchTemplate: tmpl, scroll: opts.Scroll}, nil
}

func (w *walmart) Readiness() navigation.Readiness {
	return navigation.Readiness{Selector: walmartCard}
}

func (w *walmart) Locator() pagination.Locator {
	return pagination.Locator{
		ResultsSelector:     walmartCard,
		NextSelector:        `a[data-testid="NextPage"]`,
		CurrentPageSelector: walmartPager + ` [aria-current="page"]`,
		PageLinkFormat:      walmartPager + ` a[aria-label="Page %d"]`,
	}
}

// Prepare 商品卡片随滚动懒加载
func (w *walmart) Prepare(ctx context.Context, sess chrome.Session, _ string) error {
	return autoScroll(ctx, sess, w.scroll)
}

func (w *walmart) Extract(ctx context.Context, sess chrome.Session, c param.Combination) ([]entity.RawListing, error) {
	doc, err := document(ctx, sess)
	if err != nil {
		return nil, err
	}
	var listings []entity.RawListing
	doc.Find(walmartCard).Each(func(_ int, card *goquery.Selection) {
		title := ParseWalmartTitle(text(card, `span[data-automation-id="product-title"]`), c)
		listings = append(listings, entity.RawListing{
			Brand:        title.Brand,
			Model:        title.Model,
			Size:         title.Size,
			Price:        walmartPrice(card),
			URL:          absolute(walmartHost, attr(card, "a.w-100.h-100.z-1", "href")),
			Image:        attr(card, "img", "src"),
			Availability: text(card, ".prod-ProductOffer-oosMsg"),
			LoadRange:    title.LoadRange,
		})
	})
	return listings, nil
}

// walmartPrice 价格拆成整数和分两个元素显示
func walmartPrice(card *goquery.Selection) string {
	dollars := text(card, `div[data-automation-id="product-price"] span.f2`)
	if dollars == "" {
		return ""
	}
	cents := text(card, `div[data-automation-id="product-price"] span.f6.f5-l`)
	if cents == "" {
		cents = "00"
	}
	return dollars + "." + cents
}

// WalmartTitle 从商品标题解析出的字段
type WalmartTitle struct {
	Brand     string
	Model     string
	Size      string
	LoadRange string
}

// ParseWalmartTitle 解析 "Goodyear Assurance All-Season 225/45R17 91V" 这类标题
// 没有规格时用搜索维度补全,没有已知品牌时取第一个单词
func ParseWalmartTitle(title string, c param.Combination) WalmartTitle {
	title = strings.TrimSpace(title)
	if title == "" {
		return WalmartTitle{}
	}
	lower := strings.ToLower(title)

	size := c.Size()
	sizeLoc := sizePattern.FindStringIndex(title)
	if sizeLoc != nil {
		size = title[sizeLoc[0]:sizeLoc[1]]
	}

	brandIdx, brand := -1, ""
	for _, b := range knownBrands {
		idx := strings.Index(lower, strings.ToLower(b))
		if idx != -1 && (brandIdx == -1 || idx < brandIdx) {
			brandIdx, brand = idx, b
		}
	}
	if brand == "" {
		brand = strings.Fields(title)[0]
	}

	var model string
	if brandIdx != -1 && sizeLoc != nil && sizeLoc[0] > brandIdx+len(brand) {
		model = title[brandIdx+len(brand) : sizeLoc[0]]
	} else {
		model = strings.Replace(title, brand, "", 1)
		model = strings.Replace(model, size, "", 1)
	}

	var loadRange string
	if m := loadRangePattern.FindStringSubmatch(title); m != nil {
		loadRange = strings.ToUpper(m[1])
	}

	return WalmartTitle{
		Brand:     brand,
		Model:     strings.Join(strings.Fields(model), " "),
		Size:      size,
		LoadRange: loadRange,
	}
}
