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

// chunkStore implements driven.ChunkStore. Rows hold byte offsets and an
// embedding blob; chunk text is recovered through the documents table.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// HasChunks reports whether any chunks exist for (documentID, params).
func (s *chunkStore) HasChunks(ctx context.Context, documentID string, params domain.ChunkParams) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks
		WHERE document_id = ? AND model_id = ? AND chunk_size = ? AND chunk_overlap = ?
	`, documentID, params.ModelID, params.ChunkSize, params.ChunkOverlap).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting chunks: %w", err)
	}
	return count > 0, nil
}

// UpsertChunks atomically replaces the chunk set for (documentID, params).
// Chunks numbered at or beyond the new set length are deleted in the same
// transaction, so re-chunking can shrink the count without leaving an
// orphaned tail.
func (s *chunkStore) UpsertChunks(ctx context.Context, documentID string, params domain.ChunkParams, chunks []domain.Chunk) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(document_id, model_id, chunk_size, chunk_overlap, chunk_no,
			 start_offset, end_offset, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, model_id, chunk_size, chunk_overlap, chunk_no) DO UPDATE SET
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			embedding = excluded.embedding
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, documentID,
			params.ModelID, params.ChunkSize, params.ChunkOverlap,
			chunk.ChunkNo, chunk.Start, chunk.End, embeddingBlob, now); err != nil {
			return 0, fmt.Errorf("saving chunk %d: %w", chunk.ChunkNo, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM chunks
		WHERE document_id = ? AND model_id = ? AND chunk_size = ? AND chunk_overlap = ?
			AND chunk_no >= ?
	`, documentID, params.ModelID, params.ChunkSize, params.ChunkOverlap, len(chunks)); err != nil {
		return 0, fmt.Errorf("deleting orphaned chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(chunks), nil
}

// DeleteChunks removes chunks for the document, all parameter sets when
// params is nil. Returns the number of chunks deleted.
func (s *chunkStore) DeleteChunks(ctx context.Context, documentID string, params *domain.ChunkParams) (int, error) {
	var res sql.Result
	var err error
	if params == nil {
		res, err = s.store.db.ExecContext(ctx,
			"DELETE FROM chunks WHERE document_id = ?", documentID)
	} else {
		res, err = s.store.db.ExecContext(ctx, `
			DELETE FROM chunks
			WHERE document_id = ? AND model_id = ? AND chunk_size = ? AND chunk_overlap = ?
		`, documentID, params.ModelID, params.ChunkSize, params.ChunkOverlap)
	}
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(affected), nil
}

// GetChunk retrieves one chunk by its identity key.
func (s *chunkStore) GetChunk(ctx context.Context, documentID string, params domain.ChunkParams, chunkNo int) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT chunk_no, start_offset, end_offset, embedding
		FROM chunks
		WHERE document_id = ? AND model_id = ? AND chunk_size = ? AND chunk_overlap = ?
			AND chunk_no = ?
	`, documentID, params.ModelID, params.ChunkSize, params.ChunkOverlap, chunkNo)

	chunk := domain.Chunk{DocumentID: documentID, Params: params}
	var embeddingBlob []byte
	if err := row.Scan(&chunk.ChunkNo, &chunk.Start, &chunk.End, &embeddingBlob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// ForEachChunk streams every stored chunk, used to rebuild the vector
// index at startup.
func (s *chunkStore) ForEachChunk(ctx context.Context, fn func(domain.Chunk) error) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, model_id, chunk_size, chunk_overlap, chunk_no,
			start_offset, end_offset, embedding
		FROM chunks
		ORDER BY document_id, model_id, chunk_size, chunk_overlap, chunk_no
	`)
	if err != nil {
		return fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		if err := rows.Scan(&chunk.DocumentID, &chunk.Params.ModelID,
			&chunk.Params.ChunkSize, &chunk.Params.ChunkOverlap,
			&chunk.ChunkNo, &chunk.Start, &chunk.End, &embeddingBlob); err != nil {
			return fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if err := fn(chunk); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating chunks: %w", err)
	}
	return nil
}

// ExtractText returns fullText[start:end] against the current document
// text. Offsets that no longer fit mean the document changed without
// re-chunking; the caller gets domain.ErrStaleChunk, never a corrupted
// substring.
func (s *chunkStore) ExtractText(ctx context.Context, documentID string, start, end int) (string, error) {
	var text string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT full_text FROM documents WHERE id = ?", documentID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying full text: %w", err)
	}

	if start < 0 || end < start || end > len(text) {
		return "", domain.ErrStaleChunk
	}
	return text[start:end], nil
}
