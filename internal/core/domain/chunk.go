package domain

import "fmt"

// ChunkParams identifies a chunking strategy and the embedding model it
// feeds. It acts as a versioning key: the same document chunked under two
// different parameter sets produces two independent chunk sets, so a model
// upgrade can be rolled out without destroying the previous index.
type ChunkParams struct {
	// ModelID names the embedding model the chunks are embedded with.
	ModelID string

	// ChunkSize is the sliding-window width in bytes.
	ChunkSize int

	// ChunkOverlap is the number of bytes shared between consecutive
	// chunks. Must be non-negative and strictly less than ChunkSize.
	ChunkOverlap int
}

// Validate rejects parameter sets the chunker cannot honour.
// Invalid parameters are an error at the caller boundary, never clamped.
func (p ChunkParams) Validate() error {
	if p.ModelID == "" {
		return fmt.Errorf("%w: model id is empty", ErrInvalidInput)
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidInput, p.ChunkSize)
	}
	if p.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap %d must be non-negative", ErrInvalidInput, p.ChunkOverlap)
	}
	if p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d",
			ErrInvalidInput, p.ChunkOverlap, p.ChunkSize)
	}
	return nil
}

// Key returns a stable string form of the parameter set, used in chunk IDs
// and index keys.
func (p ChunkParams) Key() string {
	return fmt.Sprintf("%s:%d:%d", p.ModelID, p.ChunkSize, p.ChunkOverlap)
}

// Span is a half-open byte range [Start, End) into a document's full text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Chunk is a contiguous span of one document's full text together with its
// embedding. The text itself is never stored; it is always recovered as
// fullText[Start:End] against the current document store content.
type Chunk struct {
	// DocumentID links to the document in the external document store.
	DocumentID string

	// Params is the chunking strategy that produced this chunk.
	Params ChunkParams

	// ChunkNo is the 0-based position within (DocumentID, Params).
	// Numbering is dense and gapless over emitted chunks.
	ChunkNo int

	// Start and End delimit the chunk as byte offsets into the
	// document's full text, Start <= End.
	Start int
	End   int

	// Embedding is the fixed-dimension vector for semantic search.
	Embedding []float32
}

// ID returns the unique identity key (DocumentID, Params, ChunkNo) in
// string form, suitable as a vector index key.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s/%s/%d", c.DocumentID, c.Params.Key(), c.ChunkNo)
}
