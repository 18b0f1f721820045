package pagination

import (
	"fmt"
	"regexp"
	"strconv"
)

// Locator 描述一个站点结果页的分页控件,空字段表示站点没有对应控件
type Locator struct {
	// ResultsSelector 结果容器,每次翻页后等待它重新出现
	ResultsSelector string
	// NextSelector 下一页按钮
	NextSelector string
	// LastPageSelector 显示总页数的元素,例如最后一个页码或 "of 12"
	LastPageSelector string
	// PageControlSelector 页码控件,没有总页数指示时按数量计算总页数
	PageControlSelector string
	// CurrentPageSelector 显示当前页码的元素
	CurrentPageSelector string
	// PageLinkFormat 直接跳页链接的选择器格式,例如 `a[data-page="%d"]`
	PageLinkFormat string
}

// PageState 分页状态, TotalKnown 为 false 时 Total 仅是下限
type PageState struct {
	Current    int
	Total      int
	TotalKnown bool
	HasMore    bool
}

func (s PageState) String() string {
	if s.TotalKnown {
		return fmt.Sprintf("page %d/%d", s.Current, s.Total)
	}
	return fmt.Sprintf("page %d/?", s.Current)
}

// SinglePage 只有一页结果的站点
func SinglePage(resultsSelector string) Locator {
	return Locator{ResultsSelector: resultsSelector}
}

func (l Locator) pageLink(n int) string {
	if l.PageLinkFormat == "" {
		return ""
	}
	return fmt.Sprintf(l.PageLinkFormat, n)
}

var digits = regexp.MustCompile(`\d+`)

// parsePageNumber 取文本中最后一个数字,兼容 "Page 3"、"3"、"1 of 12" 等写法
func parsePageNumber(text string) (int, bool) {
	all := digits.FindAllString(text, -1)
	if len(all) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(all[len(all)-1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
