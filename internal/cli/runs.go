package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/config"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List or inspect batch runs",
	Long: `List recent batch runs or inspect a specific run by ID.

Runs are recorded in SurrealDB; this command needs store = surrealdb.

Examples:
  oculus runs           # List recent runs
  oculus runs 1f3a9c2e  # Show per-document outcomes for one run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cfg.Store != config.StoreSurrealDB {
		return fmt.Errorf("runs are only recorded with store %q", config.StoreSurrealDB)
	}
	client, err := connectDB(ctx)
	if err != nil {
		return err
	}

	// If run ID provided, show that specific run
	if len(args) == 1 {
		return showRun(ctx, client, args[0])
	}
	return listRuns(ctx, client)
}

func listRuns(ctx context.Context, client *db.Client) error {
	runs, err := client.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-10s %-12s %-10s %-6s %-20s %s\n", "ID", "STATUS", "PROGRESS", "CAP", "STARTED", "LOCATION")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, run := range runs {
		progress := fmt.Sprintf("%d/%d", run.Progress, run.Total)
		started := run.StartedAt.Format("2006-01-02 15:04:05")
		fmt.Printf("%-10s %-12s %-10s %-6d %-20s %s\n", run.RunID(), run.Status, progress, run.MaxConcurrent, started, run.Location)
	}

	return nil
}

func showRun(ctx context.Context, client *db.Client, id string) error {
	run, err := client.GetRun(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run: %s\n", id)
	fmt.Printf("  Status: %s\n", run.Status)
	if run.Location != "" {
		fmt.Printf("  Location: %s\n", run.Location)
	}
	fmt.Printf("  Progress: %d/%d\n", run.Progress, run.Total)
	fmt.Printf("  Max concurrent: %d\n", run.MaxConcurrent)
	fmt.Printf("  Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
		duration := run.CompletedAt.Sub(run.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if run.Error != nil && *run.Error != "" {
		fmt.Printf("  Error: %s\n", *run.Error)
	}

	if len(run.Results) > 0 {
		failed := 0
		for _, r := range run.Results {
			if r.Status != "completed" {
				failed++
			}
		}
		fmt.Printf("\nDocuments (%d, %d failed):\n", len(run.Results), failed)
		for _, r := range run.Results {
			if r.Stage == "" {
				fmt.Printf("  %-10s %s\n", r.Status, r.Document)
				continue
			}
			fmt.Printf("  %-10s %s [%s: %s]\n", r.Status, r.Document, r.Stage, r.Reason)
		}
	}

	return nil
}
