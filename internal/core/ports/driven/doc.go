// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - PageExtractor: Turns uploaded bytes into page text
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Generates and verifies answers
//   - VectorIndex / VectorIndexFactory: Exact nearest neighbour search
//   - IndexStore: Durable (vector index, chunk list) pairs per owner and document
//   - DocumentStore: Document record persistence
//   - SummaryStore: Summary record persistence
//   - ConversationStore: Expiring chat history blobs
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PromptStore: Customisable prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
