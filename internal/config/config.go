package config

import "time"

type Config struct {
	Log         LogConfig             `yaml:"log"`
	Retailers   []string              `yaml:"retailers" validate:"required,min=1,dive,oneof=tirerack walmart discounttire bjs"`
	Proxy       ProxyConfig           `yaml:"proxy"`
	Browser     BrowserConfig         `yaml:"browser"`
	Navigation  NavigationConfig      `yaml:"navigation"`
	Scheduler   SchedulerConfig       `yaml:"scheduler"`
	Search      SearchConfig          `yaml:"search"`
	Sites       map[string]SiteConfig `yaml:"sites" validate:"dive"`
	Normalize   NormalizeConfig       `yaml:"normalize"`
	Sink        SinkConfig            `yaml:"sink"`
	Metrics     MetricsConfig         `yaml:"metrics"`
	Concurrency ConcurrencyConfig     `yaml:"concurrency"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
}

type ProxyConfig struct {
	// 有序、去重、过滤空白后的代理列表
	List []string `yaml:"list" validate:"dive,required"`
	// Required 为 true 时,代理池为空的任务直接报配置错误
	Required     bool          `yaml:"required"`
	Retries      int           `yaml:"retries" validate:"min=1"`
	BackoffBase  time.Duration `yaml:"backoff_base" validate:"min=0"`
	BackoffMax   time.Duration `yaml:"backoff_max" validate:"gtefield=BackoffBase"`
	ProbeURL     string        `yaml:"probe_url" validate:"omitempty,url"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"min=0"`
}

type BrowserConfig struct {
	Driver         string        `yaml:"driver" validate:"oneof=rod chromedp"`
	Headless       bool          `yaml:"headless"`
	NoSandbox      bool          `yaml:"no_sandbox"`
	Leakless       bool          `yaml:"leakless"`
	Bin            string        `yaml:"bin"`
	UserAgents     []string      `yaml:"user_agents"`
	AcceptLanguage string        `yaml:"accept_language"`
	ViewportWidth  int           `yaml:"viewport_width" validate:"gt=0"`
	ViewportHeight int           `yaml:"viewport_height" validate:"gt=0"`
	ViewportJitter int           `yaml:"viewport_jitter" validate:"min=0"`
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"gt=0"`
}

type NavigationConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" validate:"min=1"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" validate:"min=0"`
	// Backoff 为 0 时重试之间不额外等待
	Backoff time.Duration `yaml:"backoff" validate:"min=0"`
}

type SchedulerConfig struct {
	DelayMin     time.Duration `yaml:"delay_min" validate:"min=0"`
	DelayMax     time.Duration `yaml:"delay_max" validate:"gtefield=DelayMin"`
	TaskAttempts int           `yaml:"task_attempts" validate:"min=1"`
	// MaxPages 为 0 表示不限制
	MaxPages int `yaml:"max_pages" validate:"min=0"`
}

type SearchConfig struct {
	Zipcode   string    `yaml:"zipcode" validate:"required,numeric,len=5"`
	Widths    []int     `yaml:"widths" validate:"required,min=1,dive,gt=0"`
	Ratios    []int     `yaml:"ratios" validate:"required,min=1,dive,gt=0"`
	Diameters []float64 `yaml:"diameters" validate:"required,min=1,dive,gt=0"`
}

type SiteConfig struct {
	// SearchURL text/template 模板,可用字段 .Width .Ratio .Diameter .Zipcode
	SearchURL string `yaml:"search_url"`
	MaxPages  int    `yaml:"max_pages" validate:"min=0"`
}

type NormalizeConfig struct {
	StrictPrice bool `yaml:"strict_price"`
}

type SinkConfig struct {
	// Log 把每条记录写入日志,未启用任何存储时默认打开
	Log           bool                `yaml:"log"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Mongo         MongoConfig         `yaml:"mongo"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addresses []string `yaml:"addresses" validate:"required_if=Enabled true,dive,url"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	// BatchSize 大于 1 时按批写入,每页结束时刷新
	BatchSize int `yaml:"batch_size" validate:"min=0"`
	// Insecure 跳过 TLS 校验,仅用于本地开发
	Insecure bool `yaml:"insecure"`
}

type MongoConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URI        string        `yaml:"uri" validate:"required_if=Enabled true"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout" validate:"min=0"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

type ConcurrencyConfig struct {
	// Retailers 同时运行的零售商数量,同一零售商内部始终串行
	Retailers int `yaml:"retailers" validate:"min=1"`
}

// Default 默认配置,与原始抓取脚本的维度和邮编保持一致
func Default() *Config {
	cfg := &Config{
		Log:       LogConfig{Level: "info", Format: "console", MaxSizeMB: 50, MaxBackups: 3},
		Retailers: []string{"tirerack", "walmart", "discounttire", "bjs"},
		Proxy: ProxyConfig{
			Retries:      3,
			BackoffBase:  500 * time.Millisecond,
			BackoffMax:   5 * time.Second,
			ProbeTimeout: 15 * time.Second,
		},
		Browser: BrowserConfig{
			Driver:         "rod",
			Headless:       true,
			NoSandbox:      true,
			Leakless:       true,
			AcceptLanguage: "en-US,en;q=0.9",
			ViewportWidth:  1280,
			ViewportHeight: 800,
			ViewportJitter: 200,
			DefaultTimeout: 60 * time.Second,
		},
		Navigation: NavigationConfig{MaxAttempts: 5, ReadyTimeout: 60 * time.Second},
		Scheduler: SchedulerConfig{
			DelayMin:     3 * time.Second,
			DelayMax:     6 * time.Second,
			TaskAttempts: 1,
		},
		Search: SearchConfig{
			Zipcode:   "10001",
			Widths:    []int{225, 235},
			Ratios:    []int{40, 45},
			Diameters: []float64{17, 17.5},
		},
		Concurrency: ConcurrencyConfig{Retailers: 1},
	}
	cfg.Sink.Mongo.Database = "tyre-scrapping"
	cfg.Sink.Mongo.Collection = "tires"
	cfg.Sink.Mongo.Timeout = 10 * time.Second
	return cfg
}

// Site 返回某个零售商的站点配置,未配置时为零值
func (c *Config) Site(id string) SiteConfig {
	if c.Sites == nil {
		return SiteConfig{}
	}
	return c.Sites[id]
}
