package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
)

// documentCatalog implements driven.DocumentCatalog.
type documentCatalog struct {
	store *Store
}

var _ driven.DocumentCatalog = (*documentCatalog)(nil)

// PutDocument stores or updates a document and refreshes its full-text
// index row in the same transaction, so lexical search never sees a
// half-updated document.
func (s *documentCatalog) PutDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, abstract, full_text, withdrawn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			full_text = excluded.full_text,
			withdrawn = excluded.withdrawn,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.Abstract, doc.FullText, boolToInt(doc.Withdrawn),
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents_fts WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("clearing fts row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents_fts (document_id, title, abstract)
		VALUES (?, ?, ?)
	`, doc.ID, doc.Title, doc.Abstract); err != nil {
		return fmt.Errorf("indexing fts row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentCatalog) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, abstract, full_text, withdrawn, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var withdrawn int
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Abstract, &doc.FullText,
		&withdrawn, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Withdrawn = withdrawn != 0
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// GetFullText returns the document's full text.
func (s *documentCatalog) GetFullText(ctx context.Context, id string) (string, error) {
	var text string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT full_text FROM documents WHERE id = ?", id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying full text: %w", err)
	}
	return text, nil
}

// IsWithdrawn reports whether the document has been withdrawn.
func (s *documentCatalog) IsWithdrawn(ctx context.Context, id string) (bool, error) {
	var withdrawn int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT withdrawn FROM documents WHERE id = ?", id).Scan(&withdrawn)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("querying withdrawn flag: %w", err)
	}
	return withdrawn != 0, nil
}

// SetWithdrawn flips the document's withdrawn flag.
func (s *documentCatalog) SetWithdrawn(ctx context.Context, id string, withdrawn bool) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET withdrawn = ?, updated_at = ? WHERE id = ?
	`, boolToInt(withdrawn), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating withdrawn flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document and its full-text index row.
func (s *documentCatalog) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents_fts WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting fts row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListDocuments returns all documents, newest first.
func (s *documentCatalog) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, abstract, full_text, withdrawn, created_at, updated_at
		FROM documents ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var withdrawn int
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Abstract, &doc.FullText,
			&withdrawn, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Withdrawn = withdrawn != 0
		if createdAt.Valid {
			doc.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			doc.UpdatedAt = updatedAt.Time
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// boolToInt converts a bool to the 0/1 form SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
