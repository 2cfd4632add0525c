package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agriref/internal/store"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Store maintenance",
	}
	storeCmd.AddCommand(newStoreHealthCommand(ctx))
	return storeCmd
}

func newStoreHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check store health (schema, tables, columns, integrity)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				health, err := st.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Driver: %s\n", health.Driver)
				fmt.Fprintf(out, "Location: %s\n", health.Location)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				for _, table := range health.Tables {
					fmt.Fprintf(out, "%s table present: %s\n", table.Name, yesNo(table.Exists))
					if !table.Exists {
						continue
					}
					if len(table.MissingColumns) > 0 {
						fmt.Fprintf(out, "  Missing columns: %s\n", strings.Join(table.MissingColumns, ", "))
					} else {
						fmt.Fprintln(out, "  Missing columns: none")
					}
					fmt.Fprintf(out, "  Rows: %d\n", table.Rows)
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				if !health.Healthy() {
					return fmt.Errorf("store is not healthy")
				}
				return nil
			})
		},
	}
}
