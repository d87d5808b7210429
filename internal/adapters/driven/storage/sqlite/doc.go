// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentCatalog: reference document store with full text and metadata
//   - ChunkStore: chunk spans and embeddings, offsets only
//   - IndexQueue: durable indexing backlog with lease-based dequeue
//   - LexicalEngine: BM25 ranking over title and abstract via FTS5
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory as .up.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.litindex/data/litindex.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
