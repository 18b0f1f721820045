package site

import (
	"context"

	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/tirescraper/internal/service/navigation"
	"github.com/LouYuanbo1/tirescraper/internal/service/pagination"
	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/PuerkitoBio/goquery"
)

const (
	tireRackHost      = "https://www.tirerack.com"
	tireRackSearchURL = tireRackHost + "/tires/TireSearchResults.jsp?width={{.Width}}%2F&ratio={{.Ratio}}&diameter={{.Diameter}}"
	tireRackCard      = ".productTile"
	tireRackPager     = "#paginationWrapper"
)

type tireRack struct {
	searchTemplate
}

func newTireRack(opts Options) (Adapter, error) {
	tmpl, err := newSearchTemplate(TireRack, opts.SearchURL, tireRackSearchURL)
	if err != nil {
		return nil, err
	}
	return &tireRack{searchTemplate: tmpl}, nil
}

func (t *tireRack) Readiness() navigation.Readiness {
	return navigation.Readiness{Selector: tireRackCard}
}

func (t *tireRack) Locator() pagination.Locator {
	return pagination.Locator{
		ResultsSelector:     tireRackCard,
		NextSelector:        "button#nextArrowLink",
		CurrentPageSelector: tireRackPager + " .currentPage",
		LastPageSelector:    tireRackPager + " .totalPages",
	}
}

func (t *tireRack) Extract(ctx context.Context, sess chrome.Session, c param.Combination) ([]entity.RawListing, error) {
	doc, err := document(ctx, sess)
	if err != nil {
		return nil, err
	}
	var listings []entity.RawListing
	doc.Find(tireRackCard).Each(func(_ int, card *goquery.Selection) {
		listings = append(listings, entity.RawListing{
			Brand:        text(card, ".brandName"),
			Model:        text(card, ".modelName"),
			Size:         labeled(card, ".productSpecs li", "Size:"),
			Price:        text(card, ".pricingValue"),
			URL:          absolute(tireRackHost, attr(card, "h2 a", "href")),
			Image:        attr(card, "img", "src"),
			Availability: text(card, ".availability"),
			LoadRange:    labeled(card, ".productSpecs li", "Load Range:"),
			ServDesc:     labeled(card, ".productSpecs li", "Service Description:"),
			UTQG:         labeled(card, ".productSpecs li", "UTQG:"),
		})
	})
	return listings, nil
}
