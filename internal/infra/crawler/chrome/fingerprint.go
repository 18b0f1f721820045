package chrome

import (
	"math/rand/v2"
	"strings"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/corpix/uarand"
)

const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Fingerprint 会话的随机身份: UA、视口、额外请求头
// 自动化特征的补丁由各个 Driver 在创建页面时注入
type Fingerprint struct {
	UserAgent string
	Width     int
	Height    int
	Headers   map[string]string
}

func NewFingerprint(opts param.Session, rnd *rand.Rand) Fingerprint {
	ua := ""
	if len(opts.UserAgents) > 0 {
		ua = opts.UserAgents[rnd.IntN(len(opts.UserAgents))]
	} else {
		ua = uarand.GetRandom()
	}
	if strings.TrimSpace(ua) == "" {
		ua = fallbackUserAgent
	}

	width, height := opts.ViewportWidth, opts.ViewportHeight
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 800
	}
	if opts.ViewportJitter > 0 {
		width += rnd.IntN(opts.ViewportJitter)
		height += rnd.IntN(opts.ViewportJitter)
	}

	lang := opts.AcceptLanguage
	if lang == "" {
		lang = "en-US,en;q=0.9"
	}
	return Fingerprint{
		UserAgent: ua,
		Width:     width,
		Height:    height,
		Headers: map[string]string{
			"Accept-Language":           lang,
			"Upgrade-Insecure-Requests": "1",
		},
	}
}

// HeaderPairs 转成 rod SetExtraHeaders 需要的 [k1, v1, k2, v2] 格式
func (f Fingerprint) HeaderPairs() []string {
	pairs := make([]string, 0, len(f.Headers)*2)
	for k, v := range f.Headers {
		pairs = append(pairs, k, v)
	}
	return pairs
}
