// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Page: Raw text extracted from one page of an uploaded document
//   - Chunk: A bounded passage of document text with provenance
//   - DocumentRecord: Ownership and indexing state of an uploaded document
//   - ChatTurn: One message of a conversation
//   - Answer: A verified, classified answer to a question
//   - Summary: A cached, versioned overview of a document
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
