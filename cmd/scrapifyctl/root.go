package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scrapify/scrapify-backend/database"
	"github.com/scrapify/scrapify-backend/internal/config"
	"github.com/scrapify/scrapify-backend/internal/logging"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scrapifyctl",
	Short: "Operator tools for the Scrapify backend",
	Long: `scrapifyctl runs maintenance tasks against the Scrapify database.

It reads the same environment (and .env files) as the server.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// connect opens the configured database.
func connect() (*gorm.DB, *zap.Logger, error) {
	config.LoadDotEnv()
	cfg, _ := config.Load()

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, true, nil)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}

func openStore() (storage.Store, *zap.Logger, error) {
	db, log, err := connect()
	if err != nil {
		return nil, nil, err
	}
	return storage.NewDatabaseStore(db, log), log, nil
}
