package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/common"
	"github.com/LouYuanbo1/tirescraper/internal/domain/entity"
	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
)

// Normalizer 把 RawListing 转为规范的 TireRecord
// 不做 I/O,相同输入和时钟得到相同结果
type Normalizer struct {
	now    func() time.Time
	strict bool
	// onFallback 价格无法解析且按 0 处理时回调,用于日志和指标
	onFallback func(raw entity.RawListing, retailer string)
}

type Option func(*Normalizer)

func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithStrictPrice 非空但无法解析的价格使记录无效,而不是按 0 处理
func WithStrictPrice(strict bool) Option {
	return func(n *Normalizer) { n.strict = strict }
}

func WithFallbackHook(fn func(raw entity.RawListing, retailer string)) Option {
	return func(n *Normalizer) { n.onFallback = fn }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize 校验必填字段并生成规范记录
// brand、model、size 去空白后不能为空,retailer 也不能为空,否则返回 InvalidRecordError
func (n *Normalizer) Normalize(raw entity.RawListing, retailer string) (model.TireRecord, error) {
	brand := clean(raw.Brand)
	modelName := clean(raw.Model)
	size := clean(raw.Size)
	retailer = strings.TrimSpace(retailer)

	switch {
	case brand == "":
		return model.TireRecord{}, invalid("brand", "is empty", raw)
	case modelName == "":
		return model.TireRecord{}, invalid("model", "is empty", raw)
	case size == "":
		return model.TireRecord{}, invalid("size", "is empty", raw)
	case retailer == "":
		return model.TireRecord{}, invalid("retailer", "is empty", raw)
	}

	price, ok := ParsePrice(raw.Price)
	if !ok {
		if n.strict && strings.TrimSpace(raw.Price) != "" {
			return model.TireRecord{}, invalid("price", "is not a number", raw)
		}
		if n.onFallback != nil {
			n.onFallback(raw, retailer)
		}
	}

	scrapedAt := raw.CapturedAt
	if scrapedAt.IsZero() {
		scrapedAt = n.now()
	}

	return model.TireRecord{
		Brand:        brand,
		Model:        modelName,
		Size:         size,
		Price:        price,
		Width:        raw.Width,
		Ratio:        raw.Ratio,
		Diameter:     raw.Diameter,
		Zipcode:      strings.TrimSpace(raw.Zipcode),
		Retailer:     retailer,
		URL:          strings.TrimSpace(raw.URL),
		Image:        strings.TrimSpace(raw.Image),
		Availability: clean(raw.Availability),
		ScrapedAt:    scrapedAt,
		Attributes: model.Attributes{
			Style:     clean(raw.Style),
			EcoFocus:  clean(raw.EcoFocus),
			LoadRange: clean(raw.LoadRange),
			ServDesc:  clean(raw.ServDesc),
			UTQG:      clean(raw.UTQG),
		},
	}, nil
}

// ParsePrice 去掉数字和小数点以外的字符后解析
// "$120.50" -> 120.5, "1,299.99" -> 1299.99;无法解析时返回 (0, false)
func ParsePrice(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimRight(b.String(), ".")
	if digits == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// clean 去掉首尾空白并合并内部连续空白,页面文本常带换行和缩进
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func invalid(field, reason string, raw entity.RawListing) error {
	return &common.InvalidRecordError{Field: field, Reason: reason, Payload: raw}
}
