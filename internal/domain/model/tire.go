package model

import (
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

const TireIndex = "tires"

// Attributes 可选属性,缺失时为空字符串
type Attributes struct {
	Style     string `json:"style" bson:"style"`
	EcoFocus  string `json:"ecoFocus" bson:"ecoFocus"`
	LoadRange string `json:"loadRange" bson:"loadRange"`
	ServDesc  string `json:"servDesc" bson:"servDesc"`
	UTQG      string `json:"utqg" bson:"utqg"`
}

// TireRecord 规范化后的轮胎记录,与零售商无关
// 不变量: Brand/Model/Size/Retailer 非空, Price >= 0 (无法解析时为 0)
type TireRecord struct {
	Brand        string    `json:"brand" bson:"brand"`
	Model        string    `json:"model" bson:"model"`
	Size         string    `json:"size" bson:"size"`
	Price        float64   `json:"price" bson:"price"`
	Width        int       `json:"width" bson:"width"`
	Ratio        int       `json:"ratio" bson:"ratio"`
	Diameter     float64   `json:"diameter" bson:"diameter"`
	Zipcode      string    `json:"zipcode" bson:"zipcode"`
	Retailer     string    `json:"retailer" bson:"retailer"`
	URL          string    `json:"url" bson:"url"`
	Image        string    `json:"image" bson:"image"`
	Availability string    `json:"item_availability" bson:"item_availability"`
	ScrapedAt    time.Time `json:"scrapedAt" bson:"scrapedAt"`
	Attributes   `bson:",inline"`
}

func (t *TireRecord) GetIndex() string {
	return TireIndex
}

func (t *TireRecord) GetTypeMapping() *types.TypeMapping {
	keyword := func() types.Property { return types.NewKeywordProperty() }
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"brand":             keyword(),
			"model":             types.NewTextProperty(),
			"size":              keyword(),
			"price":             types.NewDoubleNumberProperty(),
			"width":             types.NewIntegerNumberProperty(),
			"ratio":             types.NewIntegerNumberProperty(),
			"diameter":          types.NewFloatNumberProperty(),
			"zipcode":           keyword(),
			"retailer":          keyword(),
			"url":               keyword(),
			"image":             keyword(),
			"item_availability": types.NewTextProperty(),
			"scrapedAt":         types.NewDateProperty(),
			"style":             keyword(),
			"ecoFocus":          keyword(),
			"loadRange":         keyword(),
			"servDesc":          keyword(),
			"utqg":              keyword(),
		},
	}
}
