package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"agriref/internal/config"
	"agriref/internal/parcel"
)

type identityRow struct {
	File        string  `json:"file"`
	FieldNumber string  `json:"field_number"`
	Year        string  `json:"year"`
	CropType    string  `json:"crop_type"`
	Identity    int64   `json:"identity"`
	Area        int64   `json:"area_m2"`
	CentroidX   float64 `json:"centroid_x"`
	CentroidY   float64 `json:"centroid_y"`
}

func newIdentityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identity [boundary-dir]",
		Short: "Derive parcel identities for every boundary file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Paths.BoundaryDir
			if len(args) == 1 {
				if dir, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			if dir == "" {
				return fmt.Errorf("no boundary directory given and paths.boundary_dir is unset")
			}
			deriver := parcel.NewDeriver(cfg.Identity.Origin, cfg.Identity.BoundaryPrefix)
			_, parcels, err := parcel.BuildDictionary(cmd.Context(), dir, deriver, ctx.Logger())
			if err != nil {
				return err
			}

			out := make([]identityRow, 0, len(parcels))
			for _, p := range parcels {
				row := identityRow{
					File:        filepath.Base(p.Path),
					FieldNumber: p.FieldNumber,
					Year:        p.Year,
					CropType:    p.CropType,
					Identity:    p.ID,
					Area:        p.RoundedArea(),
				}
				if x, y, err := p.Boundary.Centroid(); err == nil {
					row.CentroidX, row.CentroidY = x, y
				}
				out = append(out, row)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(out))
			for _, r := range out {
				rows = append(rows, []string{
					r.FieldNumber,
					r.Year,
					r.CropType,
					strconv.FormatInt(r.Identity, 10),
					strconv.FormatInt(r.Area, 10),
					fmt.Sprintf("%.2f, %.2f", r.CentroidX, r.CentroidY),
					r.File,
				})
			}
			headers := []string{"Field", "Year", "Crop", "Identity", "Area (m²)", "Centroid", "File"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns, fmt.Sprintf("%d parcels (origin %s)", len(out), cfg.Identity.Origin)))
			return nil
		},
	}
}
