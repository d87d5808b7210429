package domain

import "errors"

// Domain errors represent business rule failures, distinct from
// infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input. Validation
	// failures are rejected synchronously and never queued.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates a document has no full text to index.
	ErrEmptyDocument = errors.New("document has no full text")

	// ErrStaleChunk indicates chunk offsets no longer fit the current
	// full text: the document was edited out-of-band without
	// re-queueing. Re-chunking is overdue; the chunk must be excluded
	// from results rather than yield a corrupted substring.
	ErrStaleChunk = errors.New("chunk offsets are stale")

	// ErrEmbeddingUnavailable indicates no embedding service is
	// configured. Semantic search is disabled without one.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured or failed; queries degrade to lexical-only.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrSearchUnavailable indicates the lexical engine is not
	// configured or failed; queries degrade to semantic-only.
	ErrSearchUnavailable = errors.New("lexical engine unavailable")
)

// TransientError marks a failure worth retrying through the queue's
// attempt counter: embedding timeouts, rate limits, store unavailability.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure retrying cannot fix, such as input the
// embedding model hard-rejects. Permanent failures reach the dead-letter
// state on a shorter attempt budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Permanent wraps err as non-retryable. Returns nil for nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is classified permanent. Unclassified
// errors are treated as transient, so only an explicit permanent marker
// shortens the retry budget.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
