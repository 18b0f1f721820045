package main

import (
	"fmt"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/spf13/cobra"
)

var combosCmd = &cobra.Command{
	Use:   "combos",
	Short: "Prints the search combinations in the order they are scraped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		combos := param.Combinations(cfg.Search.Widths, cfg.Search.Ratios, cfg.Search.Diameters)
		out := cmd.OutOrStdout()
		for i, c := range combos {
			fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, c, c.Size())
		}
		fmt.Fprintf(out, "total: %d\n", len(combos))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(combosCmd)
}
