package entity

import (
	"time"

	"github.com/LouYuanbo1/tirescraper/param"
)

// RawListing 单个商品卡片提取出的原始字段,交给 normalize 立即消费
// 各站点适配器只填自己能拿到的字段,其余保持空字符串
type RawListing struct {
	Brand        string
	Model        string
	Size         string
	Price        string
	URL          string
	Image        string
	Availability string

	Style     string
	EcoFocus  string
	LoadRange string
	ServDesc  string
	UTQG      string

	Width    int
	Ratio    int
	Diameter float64
	Zipcode  string
	// CapturedAt 零值表示由 normalize 打时间戳
	CapturedAt time.Time
}

// Stamp 写入搜索维度和邮编
func (r *RawListing) Stamp(c param.Combination, zipcode string) {
	r.Width = c.Width
	r.Ratio = c.Ratio
	r.Diameter = c.Diameter
	r.Zipcode = zipcode
}
