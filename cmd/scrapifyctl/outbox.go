package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrapify/scrapify-backend/internal/models"
)

var (
	outboxStatus string
	outboxLimit  int
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and retry notification tasks",
}

// outboxListCmd shows tasks in a status
var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outbox tasks",
	Long: `List outbox tasks by status (pending, done, failed).

Examples:
  scrapifyctl outbox list --status failed
  scrapifyctl outbox list --status pending --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch outboxStatus {
		case models.TaskStatusPending, models.TaskStatusDone, models.TaskStatusFailed:
		default:
			return fmt.Errorf("unknown status %q", outboxStatus)
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		tasks, err := store.GetTasksByStatus(cmd.Context(), outboxStatus, outboxLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tasks)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tATTEMPTS\tNEXT ATTEMPT\tLAST ERROR")
		for _, t := range tasks {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
				t.ID, t.Kind, t.Attempts, t.NextAttemptAt.Format(time.RFC3339), t.LastError)
		}
		return w.Flush()
	},
}

// outboxRetryCmd re-queues a task
var outboxRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Reset a task to pending with a fresh attempt budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		if err := store.RetryTask(cmd.Context(), uint(id), time.Now()); err != nil {
			return fmt.Errorf("retry task %d: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %d queued for retry\n", id)
		return nil
	},
}

func init() {
	outboxListCmd.Flags().StringVar(&outboxStatus, "status", models.TaskStatusFailed, "Task status to list")
	outboxListCmd.Flags().IntVar(&outboxLimit, "limit", 50, "Maximum number of tasks")
	outboxCmd.AddCommand(outboxListCmd, outboxRetryCmd)
	rootCmd.AddCommand(outboxCmd)
}
