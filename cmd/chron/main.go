package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chronicle/internal/config"
	"github.com/alfredjeanlab/chronicle/internal/store/postgres"
)

var (
	jsonOutput bool

	cfg     *config.Config
	pgStore *postgres.PostgresStore
)

var rootCmd = &cobra.Command{
	Use:   "chron <command>",
	Short: "Manage the change audit log",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c

		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		pgStore = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pgStore != nil {
			pgStore.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
