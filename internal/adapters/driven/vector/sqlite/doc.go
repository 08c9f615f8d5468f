// Package sqlite provides a single-file vector index backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Embeddings are stored as little-endian
// float32 blobs next to their chunk metadata, and queries are answered by a
// brute-force cosine scan, which suits a personal knowledge base of a few
// thousand chunks.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// All operations are thread-safe. The index relies on database-level locking
// provided by SQLite in WAL mode.
package sqlite
