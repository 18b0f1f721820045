package proxy

import "time"

type Health int

const (
	HealthUnknown Health = iota
	HealthHealthy
	HealthFailed
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Endpoint 一个上游代理,进程启动时由配置创建,生命周期与进程相同
type Endpoint struct {
	Raw string
	// Anonymized 为空表示还没有成功匿名化,非空即为缓存
	Anonymized string
	Health     Health
	LastUsed   time.Time
}
