package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/adapters/driven/embedding/ollama"
	"github.com/arcadia-bio/litindex/internal/adapters/driven/embedding/openai"
	"github.com/arcadia-bio/litindex/internal/adapters/driven/storage/sqlite"
	"github.com/arcadia-bio/litindex/internal/adapters/driven/vector"
	"github.com/arcadia-bio/litindex/internal/config"
	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/core/services"
	"github.com/arcadia-bio/litindex/internal/logger"
)

// engine holds the wired-up adapter stack behind the package-level service
// variables. Nil when tests inject mocks directly.
type engineApp struct {
	store    *sqlite.Store
	embedder driven.EmbeddingService
	vectors  *vector.Index
}

var engine *engineApp

// ensureCatalog wires just the document catalog, for commands that only
// read or write documents and never touch the embedding provider.
func ensureCatalog(cmd *cobra.Command) error {
	if catalog != nil {
		return nil
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	registerClose(cmd, store.Close)

	engine = &engineApp{store: store}
	catalog = store.DocumentCatalog()
	indexQueue = store.IndexQueue()
	return nil
}

// ensureServices wires the full stack: store, embedding provider, vector
// index and the two core services. The vector index is in-memory and is
// rebuilt from the chunk store here.
func ensureServices(cmd *cobra.Command) error {
	if retrievalService != nil && indexingService != nil {
		return nil
	}
	if err := ensureCatalog(cmd); err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	registerClose(cmd, embedder.Close)
	engine.embedder = embedder

	vectors, err := vector.NewIndex(embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("vector index: %w", err)
	}
	registerClose(cmd, vectors.Close)
	engine.vectors = vectors

	params := chunkParams(cfg.Chunking, embedder.ModelName())
	if err := params.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	indexer := services.NewIndexer(
		engine.store.IndexQueue(),
		engine.store.DocumentCatalog(),
		engine.store.ChunkStore(),
		embedder,
		vectors,
		services.IndexerConfig{
			Workers:      cfg.Indexing.Workers,
			Params:       params,
			PollInterval: cfg.Indexing.PollInterval.Std(),
		},
	)

	retrieval := services.NewRetrieval(
		engine.store.LexicalEngine(),
		vectors,
		embedder,
		engine.store.ChunkStore(),
		engine.store.DocumentCatalog(),
		services.RetrievalConfig{
			Params: params,
			DefaultWeights: domain.Weights{
				Lexical:  cfg.Search.LexicalWeight,
				Semantic: cfg.Search.SemanticWeight,
			},
			DefaultThreshold: cfg.Search.Threshold,
		},
	)

	if err := indexer.RebuildVectorIndex(cmd.Context()); err != nil {
		return fmt.Errorf("rebuilding vector index: %w", err)
	}

	indexingService = indexer
	retrievalService = retrieval
	return nil
}

// newEmbedder constructs the configured embedding provider.
func newEmbedder(cfg config.Embedding) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// chunkParams maps config onto a chunking strategy, labelling the
// generation with the embedding model name unless overridden.
func chunkParams(cfg config.Chunking, modelName string) domain.ChunkParams {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = modelName
	}
	return domain.ChunkParams{
		ModelID:      modelID,
		ChunkSize:    cfg.Size,
		ChunkOverlap: cfg.Overlap,
	}
}

// registerClose runs fn after the command finishes. Cobra has no teardown
// hook, so it chains onto PostRunE of the root.
func registerClose(cmd *cobra.Command, fn func() error) {
	root := cmd.Root()
	prev := root.PersistentPostRunE
	root.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if err := fn(); err != nil {
			logger.Warn("Cleanup: %v", err)
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// resetServices clears injected services, used by tests.
func resetServices() {
	retrievalService = nil
	indexingService = nil
	catalog = nil
	indexQueue = nil
	engine = nil
	rootCmd.PersistentPostRunE = nil
}
