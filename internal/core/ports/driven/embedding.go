package driven

import "context"

// EmbeddingService generates vector embeddings from text. It is a network
// service that may fail or time out; implementations classify failures
// with domain.Transient / domain.Permanent so the indexing queue can
// decide between retry and a short-fuse dead letter.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. More
	// efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. It must match the
	// vector index configuration.
	Dimensions() int

	// ModelName returns the embedding model name. Used as the ModelID
	// component of chunk parameters.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request, used at startup before committing to semantic search.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
