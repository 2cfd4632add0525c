package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agriref/internal/export"
	"agriref/internal/sensor"
	"agriref/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format          string
		outPath         string
		withBackscatter bool
		withCoherence   bool
		withOptical     bool
		allowInvalidS2  bool
		extendBBCH      bool
		includeRaw      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write training samples selected from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filter := store.TrainingFilter{AllowInvalidOptical: allowInvalidS2, ExtendPhenology: extendBBCH}
			if withBackscatter {
				filter.Modalities = append(filter.Modalities, sensor.Backscatter)
			}
			if withCoherence {
				filter.Modalities = append(filter.Modalities, sensor.Coherence)
			}
			if withOptical {
				filter.Modalities = append(filter.Modalities, sensor.Optical)
			}
			if allowInvalidS2 && !withOptical {
				return fmt.Errorf("--allow-invalid-s2 requires --s2")
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = filepath.Join(cfg.Paths.ExportDir, fmt.Sprintf("training-%s.%s", time.Now().Format("20060102-150405"), f))
			}

			return ctx.withStore(func(st *store.Store) error {
				rows, err := st.TrainingRows(cmd.Context(), filter)
				if err != nil {
					return err
				}
				n, err := export.WriteFile(target, rows, export.Options{Format: f, IncludeRaw: includeRaw})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d samples to %s\n", n, target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "parquet", "Output format: parquet or csv")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: a timestamped file in paths.export_dir)")
	cmd.Flags().BoolVar(&withBackscatter, "bsc", false, "Require a valid backscatter artifact")
	cmd.Flags().BoolVar(&withCoherence, "coh", false, "Require a valid coherence artifact")
	cmd.Flags().BoolVar(&withOptical, "s2", false, "Require a valid optical artifact")
	cmd.Flags().BoolVar(&allowInvalidS2, "allow-invalid-s2", false, "Accept optical artifacts that failed the validity gate")
	cmd.Flags().BoolVar(&extendBBCH, "extend-bbch", false, "Fill missing growth stages from the nearest observation")
	cmd.Flags().BoolVar(&includeRaw, "raw", false, "Include raw artifact bytes (parquet only)")
	return cmd
}
