// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - ContentLoader: Reads a file and extracts plain text + metadata
//   - LoaderRegistry: Selects a loader by file extension
//   - Chunker: Splits normalised text into overlapping chunks
//   - EmbeddingService: Turns text into vectors
//   - VectorIndex: Stores vectors and answers nearest-neighbour queries
//   - LLMService: Chat completion
//   - TrackingStore: Persisted filename -> content hash map
//   - ConfigStore: Application configuration file
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
