package site

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/PuerkitoBio/goquery"
)

const (
	discountTireHost      = "https://www.discounttire.com"
	discountTireSearchURL = discountTireHost + "/fitmentresult/tires/size/{{.Width}}-{{.Ratio}}-{{.Diameter}}"
	discountTireCard      = "div.product-list-card__container___3e7Ww"
	discountTireModal     = "svg.popover__close-button-icon___1L_mw"
)

// 弹窗的关闭图标在按钮内部,直接点击 svg 不会触发关闭
const closeModalJS = `(sel) => {
	const icon = document.querySelector(sel);
	const button = icon && icon.closest('button');
	if (button) {
		button.click();
		return true;
	}
	return false;
}`

type discountTire struct {
	searchTemplate
	scroll param.Scroll
}

func newDiscountTire(opts Options) (Adapter, error) {
	tmpl, err := newSearchTemplate(DiscountTire, opts.SearchURL, discountTireSearchURL)
	if err != nil {
		return nil, err
	}
	return &discountTire{searchTemplate: tmpl, scroll: opts.Scroll}, nil
}

func (d *discountTire) Readiness() navigation.Readiness {
	return navigation.Readiness{Selector: discountTireCard}
}

func (d *discountTire) Locator() pagination.Locator {
	return pagination.SinglePage(discountTireCard)
}

// Prepare 关闭门店选择弹窗后滚动加载全部卡片
func (d *discountTire) Prepare(ctx context.Context, sess chrome.Session, _ string) error {
	open, err := sess.Exists(ctx, discountTireModal)
	if err != nil {
		return fmt.Errorf("failed to check store modal: %w", err)
	}
	if open {
		if _, err := sess.Eval(ctx, closeModalJS, discountTireModal); err != nil {
			return fmt.Errorf("failed to close store modal: %w", err)
		}
	}
	return autoScroll(ctx, sess, d.scroll)
}

func (d *discountTire) Extract(ctx context.Context, sess chrome.Session, c param.Combination) ([]entity.RawListing, error) {
	doc, err := document(ctx, sess)
	if err != nil {
		return nil, err
	}
	var listings []entity.RawListing
	doc.Find(discountTireCard).Each(func(_ int, card *goquery.Selection) {
		listings = append(listings, entity.RawListing{
			Brand:        text(card, "span.product-title__brand"),
			Model:        text(card, "span.product-title__name"),
			Size:         text(card, "span.product-title__size"),
			Price:        text(card, "span.price"),
			URL:          absolute(discountTireHost, attr(card, "a.product-image", "href")),
			Image:        attr(card, "a.product-image img", "src"),
			Availability: text(card, ".product-availability-message span"),
		})
	})
	return listings, nil
}
