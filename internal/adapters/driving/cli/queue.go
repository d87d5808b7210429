package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the indexing queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backlog and dead-letter counts",
	RunE:  runQueueStatus,
}

var queueDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List dead-letter entries",
	Long: `Lists documents that exhausted their retry budget, with the last
recorded error. Re-queue one with "litindex reindex <doc-id>".`,
	RunE: runQueueDead,
}

func init() {
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueDeadCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	health, err := indexingService.QueueHealth(cmd.Context())
	if err != nil {
		return fmt.Errorf("queue health: %w", err)
	}

	cmd.Printf("Backlog:      %d\n", health.BacklogSize)
	cmd.Printf("Dead letters: %d\n", health.DeadLetterCount)
	return nil
}

func runQueueDead(cmd *cobra.Command, _ []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if indexQueue == nil {
		return errors.New("queue not configured")
	}

	entries, err := indexQueue.ListDead(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing dead letters: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No dead-letter entries.")
		return nil
	}

	cmd.Println("Dead-letter entries:")
	cmd.Println()
	for _, entry := range entries {
		cmd.Printf("  %s\n", entry.DocumentID)
		cmd.Printf("    Attempts:   %d\n", entry.Attempts)
		cmd.Printf("    Last error: %s\n", entry.LastError)
		if !entry.LastAttemptAt.IsZero() {
			cmd.Printf("    Last tried: %s\n", entry.LastAttemptAt.Format("2006-01-02 15:04:05"))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d entries\n", len(entries))
	return nil
}
