package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"agriref/internal/catalog"
	"agriref/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "catalog <dir>",
		Short:       "List the dated artifacts found in a directory",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			cat, err := catalog.Build(dir)
			if err != nil {
				return err
			}
			dates := cat.Dates()
			if ctx.JSONMode() {
				return writeJSON(cmd, cat)
			}
			out := cmd.OutOrStdout()
			if len(dates) == 0 {
				fmt.Fprintf(out, "No dated artifacts in %s\n", dir)
				return nil
			}
			rows := make([][]string, 0, len(dates))
			for _, date := range dates {
				path, _ := cat.Lookup(date)
				rows = append(rows, []string{date, filepath.Base(path)})
			}
			fmt.Fprintln(out, renderTable([]string{"Date", "Artifact"}, rows, nil, fmt.Sprintf("%d artifacts in %s", len(dates), dir)))
			return nil
		},
	}
}
