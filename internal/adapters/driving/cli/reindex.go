package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

var reindexAll bool

var reindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Queue documents for re-chunking and re-embedding",
	Long: `Queues a document for re-indexing at interactive priority, ahead of
bulk work. With --all, every document in the catalog is queued at bulk
priority instead, e.g. after changing the chunking or embedding settings.

The queue is durable; run "litindex serve" to process it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexAll, "all", false, "re-queue every catalog document")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	ctx := cmd.Context()

	if reindexAll {
		if len(args) > 0 {
			return errors.New("--all does not take a document ID")
		}
		if catalog == nil {
			return errors.New("catalog not configured")
		}

		docs, err := catalog.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}

		queued := 0
		for i := range docs {
			if docs[i].FullText == "" {
				continue
			}
			if err := indexingService.Enqueue(ctx, docs[i].ID, domain.PriorityBulk); err != nil {
				return fmt.Errorf("queueing %s: %w", docs[i].ID, err)
			}
			queued++
		}

		cmd.Printf("Queued %d documents for re-indexing.\n", queued)
		return nil
	}

	if len(args) == 0 {
		return errors.New("a document ID or --all is required")
	}

	docID := args[0]
	if err := indexingService.EnqueueNow(ctx, docID); err != nil {
		return fmt.Errorf("queueing %s: %w", docID, err)
	}

	cmd.Printf("Document %s queued at interactive priority.\n", docID)
	return nil
}
