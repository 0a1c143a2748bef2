package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chronicle/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history <table>",
	Short: "Show captured changes for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, _ := cmd.Flags().GetString("target")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := pgStore.RecordsMatching(context.Background(), args[0], nil)
		if err != nil {
			return err
		}

		if targetID != "" {
			filtered := records[:0]
			for _, a := range records {
				if a.TargetID == targetID {
					filtered = append(filtered, a)
				}
			}
			records = filtered
		}
		if limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(records)
		}
		printActivityTable(records)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringP("target", "t", "", "filter by target primary key value")
	historyCmd.Flags().IntP("limit", "n", 0, "show only the most recent N changes")
}

func printActivityTable(records []*model.Activity) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTXN\tISSUED\tVERB\tTARGET\tACTOR")
	for _, a := range records {
		actor := a.ActorID
		if actor == "" {
			actor = "-"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			a.ID, a.TransactionID, a.IssuedAt.Format("2006-01-02 15:04:05"),
			a.Verb, a.TargetID, actor)
	}
	w.Flush()
	fmt.Printf("\n%d change(s)\n", len(records))
}
