package domain

import "time"

// Document is a bibliographic record with its full text. The chunking
// engine treats the document store as the single owner of text: chunks
// reference it by offsets and never copy it.
type Document struct {
	// ID is the caller-assigned identifier (PMID, DOI, file path).
	ID string

	// Title and Abstract feed the lexical index.
	Title    string
	Abstract string

	// FullText is the complete body text. Empty means the document has
	// nothing to chunk yet.
	FullText string

	// Withdrawn hides the document from all search results while keeping
	// the record for audit.
	Withdrawn bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
