// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentFetcher: Resolves a locator to raw bytes
//   - Extractor: Turns raw bytes into text with page markers
//   - PostProcessorPipeline: Chunks extracted text
//   - VectorStore: Persisted approximate nearest-neighbour index over chunks
//   - Caches: Every cache tier (use the no-op tier to disable one)
//   - PromptStore: Prompt templates
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Generates answers (Copilot, OpenAI or Ollama)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Scores candidates. Without it, vector order is kept.
//   - QuestionLog: Records questions and answers.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector or extractor package
package driven
