// Package domain defines the core business entities for Codex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A loaded file with its plain text and metadata
//   - Chunk: A bounded slice of a document, the retrieval unit
//   - FileFingerprint: The content hash used for change detection
//   - VectorRecord / RetrievalMatch: What goes into and comes out of the index
//   - Answer: A composed reply and the titles it was grounded on
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
