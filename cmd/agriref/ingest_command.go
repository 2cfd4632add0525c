package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agriref/internal/config"
	"agriref/internal/ingest"
	"agriref/internal/preflight"
	"agriref/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reconcile every parcel named by a job manifest into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(manifestPath) == "" {
				return errors.New("--manifest is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manifest, err := ingest.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				lines := make([]string, 0, len(failed))
				for _, r := range failed {
					lines = append(lines, fmt.Sprintf("%s: %s", r.Name, r.Detail))
				}
				return fmt.Errorf("preflight failed:\n  %s", strings.Join(lines, "\n  "))
			}

			var report *ingest.Report
			if dryRun {
				report, err = ingest.NewRunner(cfg, nil, ctx.Logger()).Run(cmd.Context(), manifest, ingest.Options{DryRun: true})
			} else {
				err = ctx.withStore(func(st *store.Store) error {
					var runErr error
					report, runErr = ingest.NewRunner(cfg, st, ctx.Logger()).Run(cmd.Context(), manifest, ingest.Options{})
					return runErr
				})
			}
			if report != nil {
				if ctx.JSONMode() {
					if jsonErr := writeJSON(cmd, report); jsonErr != nil {
						return jsonErr
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderIngestReport(report, cfg))
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Job manifest (YAML)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Reconcile without writing to the store")
	return cmd
}

func renderIngestReport(report *ingest.Report, cfg *config.Config) string {
	headers := []string{"Field", "Year", "Identity", "Range", "Days", "Emitted", "Duplicates", "Filled", "Note"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(report.Parcels))
	for _, p := range report.Parcels {
		span := "-"
		if p.Start != "" {
			span = p.Start + " .. " + p.End
		}
		note := p.Skipped
		if note == "" && p.Registered {
			note = "registered"
		}
		rows = append(rows, []string{
			p.FieldNumber,
			p.Year,
			strconv.FormatInt(p.FieldID, 10),
			span,
			strconv.Itoa(p.Summary.DaysScanned),
			strconv.Itoa(p.Summary.Emitted),
			strconv.Itoa(p.Summary.Duplicates),
			strconv.Itoa(p.Summary.Interpolations + p.Summary.CacheHits),
			note,
		})
	}
	mode := "run"
	if report.DryRun {
		mode = "dry run"
	}
	t := report.Totals
	footer := fmt.Sprintf("%s %s: %d emitted, %d duplicates, %d identity misses, %d gate failures, %d write skips in %s",
		mode, report.RunID, t.Emitted, t.Duplicates, t.IdentityMisses, t.GateFailures, t.WriteSkips, report.Elapsed.Round(time.Millisecond))
	if cfg != nil && cfg.Metrics.Textfile != "" {
		footer += "\nmetrics: " + cfg.Metrics.Textfile
	}
	return renderTable(headers, rows, aligns, footer)
}
