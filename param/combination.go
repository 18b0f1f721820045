package param

import (
	"fmt"
	"strconv"
)

// Combination 一组搜索维度 (宽度, 扁平比, 轮辋直径)
type Combination struct {
	Width    int     `json:"width" yaml:"width"`
	Ratio    int     `json:"ratio" yaml:"ratio"`
	Diameter float64 `json:"diameter" yaml:"diameter"`
}

// DiameterString 17 -> "17", 17.5 -> "17.5"
func (c Combination) DiameterString() string {
	return strconv.FormatFloat(c.Diameter, 'f', -1, 64)
}

// Size 规格字符串,如 225/45R17
func (c Combination) Size() string {
	return fmt.Sprintf("%d/%dR%s", c.Width, c.Ratio, c.DiameterString())
}

func (c Combination) String() string {
	return fmt.Sprintf("%d-%d-%s", c.Width, c.Ratio, c.DiameterString())
}

// Combinations 按固定顺序枚举笛卡尔积: 宽度在最外层,扁平比居中,直径在最内层
// 顺序固定,中断后可以从同一位置恢复
func Combinations(widths, ratios []int, diameters []float64) []Combination {
	combos := make([]Combination, 0, len(widths)*len(ratios)*len(diameters))
	for _, w := range widths {
		for _, r := range ratios {
			for _, d := range diameters {
				combos = append(combos, Combination{Width: w, Ratio: r, Diameter: d})
			}
		}
	}
	return combos
}
