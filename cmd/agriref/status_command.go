package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agriref/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckStoreFromConfig(cmd.Context(), cfg))
			if ctx.JSONMode() {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			p := newStatusPrinter(out)
			p.section("Environment")
			for _, r := range results {
				p.result(r, statusError)
			}

			p.section("Settings")
			p.line("Identity origin", statusInfo, cfg.Identity.Origin)
			p.line("Gate threshold", statusInfo, fmt.Sprintf("%.2f", cfg.Gate.Threshold))
			if cfg.Gapfill.Enabled {
				p.line("Gap filling", statusInfo, fmt.Sprintf("Enabled (%d neighbours)", cfg.Gapfill.Neighbors))
			} else {
				p.line("Gap filling", statusWarn, "Disabled")
			}
			if cfg.Metrics.Textfile != "" {
				p.line("Metrics textfile", statusInfo, cfg.Metrics.Textfile)
			}
			p.flush(out)
			return nil
		},
	}
}
