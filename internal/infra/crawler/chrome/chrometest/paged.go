package chrometest

import "fmt"

// Paged 构造一个多页结果站点: 入口 URL 显示第1页,点击 nextSelector 进入下一页
// linkFormat 非空时,点击 fmt.Sprintf(linkFormat, n) 直接跳到第 n 页
func Paged(url, nextSelector, linkFormat string, pages ...string) *Session {
	s := New()
	if len(pages) == 0 {
		return s
	}
	s.Routes[url] = pages[0]
	current := 0
	s.OnClick[nextSelector] = func(s *Session) error {
		if current+1 >= len(pages) {
			return fmt.Errorf("chrometest: already on last page")
		}
		current++
		s.SetHTML(pages[current])
		return nil
	}
	if linkFormat != "" {
		for i := range pages {
			s.OnClick[fmt.Sprintf(linkFormat, i+1)] = func(s *Session) error {
				current = i
				s.SetHTML(pages[i])
				return nil
			}
		}
	}
	return s
}
