// Package domain contains the core types and business rules for the
// litindex chunking, indexing and retrieval engine.
//
// The domain layer has no dependencies on adapters or infrastructure.
// Chunks are stored as byte offsets into document text held by the
// external document store; the domain never carries a copy of that text.
package domain
