package driven

import (
	"context"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

// DocumentStore is the external collaborator that owns document text and
// metadata. The engine reads from it and never caches or duplicates full
// text; chunk text is always recovered lazily through these methods.
type DocumentStore interface {
	// GetFullText returns the document's full text. It returns
	// domain.ErrNotFound for unknown documents and an empty string for
	// documents without text.
	GetFullText(ctx context.Context, documentID string) (string, error)

	// IsWithdrawn reports whether the document has been withdrawn.
	// Withdrawn documents are excluded from all search results.
	IsWithdrawn(ctx context.Context, documentID string) (bool, error)
}

// DocumentCatalog is the writable superset of DocumentStore used by
// ingestion surfaces: the file watcher, CLI import and the reference
// store bundled with the engine. The indexing and retrieval core only
// ever depends on the read side.
type DocumentCatalog interface {
	DocumentStore

	// PutDocument inserts or updates a document and refreshes its
	// lexical index entry in the same operation.
	PutDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document and its lexical index entry.
	DeleteDocument(ctx context.Context, id string) error

	// SetWithdrawn flips the document's withdrawn flag.
	SetWithdrawn(ctx context.Context, id string, withdrawn bool) error

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// DocumentEvent is a change notification from the document store: a
// document's full text was inserted or updated, or the document was
// deleted or withdrawn. The engine translates these into queue entries.
type DocumentEvent struct {
	DocumentID string
	Deleted    bool
}

// DocumentFeed delivers change notifications. Implementations may watch a
// filesystem, poll a database diff, or subscribe to a message stream; the
// enqueue path stays testable either way.
type DocumentFeed interface {
	// Events returns the notification channel. Closed on shutdown.
	Events() <-chan DocumentEvent

	// Close stops the feed.
	Close() error
}
