package site

import (
	"context"
	"fmt"
	"strings"

	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/PuerkitoBio/goquery"
)

const (
	bjsHost      = "https://tires.bjs.com"
	bjsSearchURL = bjsHost + "/"
	bjsZipInput  = "#postal-code"
	bjsZipSubmit = ".enter-postal-code button"
	bjsCard      = ".product"
)

// bjs 搜索页不带维度参数,输入邮编后列出门店库存
type bjs struct {
	searchTemplate
}

func newBJs(opts Options) (Adapter, error) {
	tmpl, err := newSearchTemplate(BJs, opts.SearchURL, bjsSearchURL)
	if err != nil {
		return nil, err
	}
	return &bjs{searchTemplate: tmpl}, nil
}

// Readiness 结果要在输入邮编后才出现,导航阶段只等输入框
func (b *bjs) Readiness() navigation.Readiness {
	return navigation.Readiness{Selector: bjsZipInput}
}

func (b *bjs) Locator() pagination.Locator {
	return pagination.SinglePage(bjsCard)
}

func (b *bjs) Prepare(ctx context.Context, sess chrome.Session, zipcode string) error {
	if err := sess.Input(ctx, bjsZipInput, zipcode); err != nil {
		return fmt.Errorf("failed to enter zipcode: %w", err)
	}
	if err := sess.Click(ctx, bjsZipSubmit); err != nil {
		return fmt.Errorf("failed to submit zipcode: %w", err)
	}
	if err := sess.WaitVisible(ctx, bjsCard, 0); err != nil {
		return fmt.Errorf("no products after entering zipcode: %w", err)
	}
	return nil
}

func (b *bjs) Extract(ctx context.Context, sess chrome.Session, c param.Combination) ([]entity.RawListing, error) {
	doc, err := document(ctx, sess)
	if err != nil {
		return nil, err
	}
	var listings []entity.RawListing
	doc.Find(bjsCard).Each(func(_ int, card *goquery.Selection) {
		title := text(card, ".product-title")
		var brand, model string
		if fields := strings.Fields(title); len(fields) > 0 {
			brand = fields[0]
			model = strings.TrimSpace(strings.TrimPrefix(title, brand))
		}
		listings = append(listings, entity.RawListing{
			Brand: brand,
			Model: model,
			Size:  labeled(card, ".product-specs li", "Size:"),
			Price: text(card, ".price"),
			URL:   absolute(bjsHost, attr(card, "a[href]", "href")),
			Image: attr(card, "img", "src"),
		})
	})
	return listings, nil
}
