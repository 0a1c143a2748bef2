package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Create the activity table and capture functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connecting runs any pending migrations, so by the time the
		// pre-run hook finished the schema is in place.
		fmt.Println("Audit schema installed.")
		return nil
	},
}
