package param

import "time"

// Session 浏览器会话参数,每个任务打开一个独立的会话
type Session struct {
	// Proxy 为空表示直连
	Proxy          string
	Headless       bool
	NoSandbox      bool
	Leakless       bool
	Bin            string
	UserAgents     []string
	AcceptLanguage string
	// 视口基准尺寸,实际尺寸会在此基础上随机抖动
	ViewportWidth  int
	ViewportHeight int
	ViewportJitter int
	DefaultTimeout time.Duration
	// LifeTime 会话的总时长上限,0 表示不限制
	LifeTime time.Duration
}

// Scroll 自动滚动参数
type Scroll struct {
	Distance int           `json:"distance" yaml:"distance"`
	Interval time.Duration `json:"interval" yaml:"interval"`
	MaxSteps int           `json:"max_steps" yaml:"max_steps"`
}

func DefaultScroll() Scroll {
	return Scroll{Distance: 400, Interval: 250 * time.Millisecond, MaxSteps: 200}
}
