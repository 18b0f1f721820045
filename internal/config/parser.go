package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// 兼容原有的 proxy1..proxy4 环境变量
var proxyEnvKeys = []string{"PROXY1", "PROXY2", "PROXY3", "PROXY4"}

// ParseConfig 解析 YAML 配置: 展开环境变量,在默认值上覆盖,整理代理列表后校验
func ParseConfig(byteConfig []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(byteConfig))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, key := range proxyEnvKeys {
		if v := os.Getenv(key); v != "" {
			cfg.Proxy.List = append(cfg.Proxy.List, v)
		}
	}
	cfg.Proxy.List = NormalizeProxyList(cfg.Proxy.List)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load 从文件读取配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NormalizeProxyList 去掉首尾空白和空项,按首次出现的顺序去重
func NormalizeProxyList(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, p := range list {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
