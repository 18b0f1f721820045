package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/spf13/cobra"
)

//go:embed appconfig/appconfig.yaml
var defaultConfig []byte

var configPath string

var rootCmd = &cobra.Command{
	Use:          "tirescraper",
	Short:        "tirescraper collects tire listings from retailer search pages.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file, the embedded default is used when empty")
}

// loadConfig 优先读取 --config 指定的文件
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.ParseConfig(defaultConfig)
	}
	return config.Load(configPath)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
