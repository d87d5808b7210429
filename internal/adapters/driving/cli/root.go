// Package cli implements the litindex command line interface. Commands
// operate against the same SQLite database the serve daemon uses; one-shot
// commands that change the queue rely on a running daemon to drain it.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/config"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/core/ports/driving"
	"github.com/arcadia-bio/litindex/internal/logger"
)

var version = "0.1.0"

// Flags shared by all commands.
var (
	cfgPath     string
	verboseFlag bool
)

// cfg is the effective configuration, loaded before any command runs.
var cfg = config.Default()

// Services injected by ensureServices (or by tests). Commands check for
// nil so a misconfigured binary fails with a clear message instead of a
// panic.
var (
	retrievalService driving.RetrievalService
	indexingService  driving.IndexingService
	catalog          driven.DocumentCatalog
	indexQueue       driven.IndexQueue
)

var rootCmd = &cobra.Command{
	Use:   "litindex",
	Short: "Chunking, indexing and hybrid retrieval for biomedical literature",
	Long: `litindex chunks biomedical documents, embeds them, and serves hybrid
keyword + semantic search over the result.

Documents live in a local SQLite catalog. A durable queue decouples
ingestion from the chunk/embed pipeline; run "litindex serve" to process
it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)

		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.litindex/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
