// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Scripted replies
//	gen := mock.NewMockGenerator().QueueReplies(`[{"question": "q", "type": "TEXT"}]`, "answer")
//
//	// Custom behavior injection
//	gen.WithGenerateFunc(func(ctx context.Context, prompt string, o ai.GenerateOptions) (string, error) {
//	    return "Supports", nil
//	})
//
//	// Check call counts
//	count := gen.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns hashed bag-of-words vectors, so texts sharing words are similar
//   - MockGenerator: Returns queued replies in order, then DefaultReply
//   - MockProvider: Aggregates mock embedder and generator
//
// All mocks are safe for concurrent use.
package mock
