package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the audit schema and all captured history",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to drop the activity log without --yes")
		}
		if err := pgStore.RemoveVersioning(); err != nil {
			return err
		}
		fmt.Println("Audit schema removed.")
		return nil
	},
}

func init() {
	uninstallCmd.Flags().Bool("yes", false, "confirm destroying all captured history")
}
