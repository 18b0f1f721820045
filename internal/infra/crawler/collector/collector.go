package collector

import "context"

// ProxyProber 通过代理访问探测地址,确认匿名化后的代理可用
type ProxyProber interface {
	Probe(ctx context.Context, proxyURL string) error
}
