package main

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/tirescraper/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/tirescraper/internal/infra/logger"
	"github.com/LouYuanbo1/tirescraper/internal/infra/proxy"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Anonymizes every configured proxy and checks it against the probe url.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		if cfg.Proxy.ProbeURL == "" {
			return fmt.Errorf("proxy.probe_url is empty")
		}

		forwarder := proxy.NewLocalForwarder(log)
		defer forwarder.CloseAll()
		prober := collector.InitCollyProber(cfg.Proxy.ProbeURL, cfg.Proxy.ProbeTimeout, collector.WithLogger(log))

		out := cmd.OutOrStdout()
		failed := 0
		for i, raw := range cfg.Proxy.List {
			if err := probeOne(cmd.Context(), forwarder, prober, raw); err != nil {
				failed++
				fmt.Fprintf(out, "proxy %d: FAIL %v\n", i+1, err)
				continue
			}
			fmt.Fprintf(out, "proxy %d: ok\n", i+1)
		}
		if len(cfg.Proxy.List) == 0 {
			fmt.Fprintln(out, "no proxies configured, tasks will connect directly")
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d proxies failed", failed, len(cfg.Proxy.List))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func probeOne(ctx context.Context, forwarder *proxy.LocalForwarder, prober collector.ProxyProber, raw string) error {
	addr, err := forwarder.Anonymize(ctx, raw)
	if err != nil {
		return err
	}
	defer forwarder.Close(addr)
	return prober.Probe(ctx, addr)
}
