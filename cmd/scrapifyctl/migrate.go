package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapify/scrapify-backend/database"
)

// migrateCmd creates or updates the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := connect()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
