package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agriref/internal/sensor"
	"agriref/internal/store"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "records <field-id>",
		Short: "Show the stored day records of a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fieldID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid field id %q", args[0])
			}
			if date = strings.TrimSpace(date); date != "" {
				if _, err := time.Parse(time.DateOnly, date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				var rows []store.DayRow
				if date != "" {
					row, err := st.GetDayRecord(cmd.Context(), fieldID, date)
					if err != nil {
						return err
					}
					if row != nil {
						rows = append(rows, *row)
					}
				} else if rows, err = st.ListDayRecords(cmd.Context(), fieldID); err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintf(out, "No day records for field %d\n", fieldID)
					return nil
				}
				fmt.Fprintln(out, renderRecords(fieldID, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Show only this date (YYYY-MM-DD)")
	return cmd
}

func renderRecords(fieldID int64, rows []store.DayRow) string {
	headers := []string{"Date", "BBCH", "Precip", "T mean", "T min", "T max"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	for _, m := range sensor.All() {
		headers = append(headers, string(m), string(m)+" filled")
		aligns = append(aligns, alignLeft, alignLeft)
	}
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		bbch := optionalInt(r.BBCHPhase)
		if r.BBCHSim != nil && *r.BBCHSim {
			bbch += "*"
		}
		line := []string{r.Date, bbch, optionalInt(r.Precip), optionalInt(r.TempMean), optionalInt(r.TempMin), optionalInt(r.TempMax)}
		for _, m := range sensor.All() {
			raster := r.Raster(m)
			line = append(line, artifactCell(raster.Data, raster.Valid), artifactCell(raster.Interp, nil))
		}
		body = append(body, line)
	}
	size := "-"
	if len(rows) > 0 {
		size = optionalInt64(rows[0].Size)
	}
	return renderTable(headers, body, aligns, fmt.Sprintf("field %d: %d records, size %s m²", fieldID, len(rows), size))
}
