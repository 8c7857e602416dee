// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: a registered, indexed document
//   - Chunk: a retrieval unit cut from a document's text
//   - SearchResult: a chunk returned by the vector store with its distance
//   - Answer: the outcome of a question, including sources and timings
//   - CacheStats: counters reported by every cache tier
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
