package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scrapify/scrapify-backend/internal/services"
)

var legacyDryRun bool

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Address maintenance",
}

// migrateLegacyCmd splits combined legacy address strings
var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy",
	Short: "Convert legacy combined addresses into structured rows",
	Long: `Split users.address values of the form "street, area, city, pincode" into
user_addresses rows. Users that already have a structured address are skipped;
values that do not validate are reported and left untouched.

Examples:
  scrapifyctl addresses migrate-legacy --dry-run
  scrapifyctl addresses migrate-legacy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openStore()
		if err != nil {
			return err
		}

		report, err := services.NewAddressService(store, log).MigrateLegacy(cmd.Context(), legacyDryRun)
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}

func printReport(cmd *cobra.Command, report *services.MigrationReport) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	verb := "Migrated"
	if legacyDryRun {
		verb = "Would migrate"
	}
	fmt.Fprintf(out, "%s: %d\nSkipped: %d\nInvalid: %d\n", verb, report.Migrated, report.Skipped, len(report.Invalid))

	ids := make([]uint, 0, len(report.Invalid))
	for id := range report.Invalid {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(out, "  user %d: %s\n", id, report.Invalid[id])
	}
	return nil
}

func init() {
	migrateLegacyCmd.Flags().BoolVar(&legacyDryRun, "dry-run", false, "Report what would change without writing")
	addressesCmd.AddCommand(migrateLegacyCmd)
	rootCmd.AddCommand(addressesCmd)
}
