package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit [table...]",
	Short: "Attach change capture to tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		manifestPath, _ := cmd.Flags().GetString("manifest")

		ctx := context.Background()

		if manifestPath != "" {
			if len(args) > 0 || len(exclude) > 0 {
				return fmt.Errorf("--manifest cannot be combined with table arguments or --exclude")
			}
			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			tables := make([]string, 0, len(m.Tables))
			for t := range m.Tables {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				if err := pgStore.AuditTable(ctx, t, m.Tables[t].Exclude...); err != nil {
					return err
				}
				fmt.Printf("Auditing %s\n", t)
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no tables given (pass table names or --manifest)")
		}
		for _, t := range args {
			if err := pgStore.AuditTable(ctx, t, exclude...); err != nil {
				return err
			}
			fmt.Printf("Auditing %s\n", t)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringSliceP("exclude", "x", nil, "columns to exclude from capture (repeatable)")
	auditCmd.Flags().StringP("manifest", "m", "", "read tables and excludes from a chronicle.toml manifest")
}
