package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/adapters/driven/docwatch"
	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/logger"
)

var serveWatchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indexing workers",
	Long: `Runs the indexing worker pool until interrupted.

Workers lease documents from the durable queue, chunk and embed them, and
keep the vector index in sync. With a watch directory configured, files
added or changed there are ingested and queued automatically.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "directory of document files to ingest (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := indexingService.Start(ctx); err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}
	defer indexingService.Stop() //nolint:errcheck

	watchDir := serveWatchDir
	if watchDir == "" {
		watchDir = cfg.WatchDir
	}

	if watchDir != "" {
		watcher, err := docwatch.New(ctx, watchDir, catalog)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer watcher.Close() //nolint:errcheck

		cmd.Printf("Watching %s for documents.\n", watchDir)
		go consumeFeed(ctx, watcher)
	}

	cmd.Println("Indexing workers running. Press Ctrl+C to stop.")
	<-ctx.Done()
	cmd.Println("Shutting down.")
	return nil
}

// consumeFeed turns document change events into queue entries. Deletions
// go straight to the queue so a worker cascades chunk and vector cleanup.
func consumeFeed(ctx context.Context, feed driven.DocumentFeed) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-feed.Events():
			if !ok {
				return
			}
			var err error
			if event.Deleted {
				err = indexQueue.Enqueue(ctx, event.DocumentID, domain.PriorityBulk)
			} else {
				err = indexingService.Enqueue(ctx, event.DocumentID, domain.PriorityBulk)
			}
			if err != nil {
				logger.Warn("Queueing %s: %v", event.DocumentID, err)
			}
		}
	}
}
