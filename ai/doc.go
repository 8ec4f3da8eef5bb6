// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the language model services used by attest.
//
// This package defines interfaces for text embeddings and text generation.
// Retrieval, orchestration and verification depend on these abstractions
// rather than on a concrete model provider.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Generator: Produces text completions from a prompt
//   - AIProvider: Aggregates AI services for convenient initialization
//
// Shared helpers live here too: Config for provider settings,
// RetryWithBackoff for bounded retries and DecodeJSON for tolerant decoding of
// structured model replies.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockGenerator) return CONCRETE types so tests can inject behavior
// and inspect call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
//	mockGen := mock.NewMockGenerator()           // returns *mock.MockGenerator
//	mockGen.WithGenerateFunc(...)
//	count := mockGen.CallCount()
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	reply, err := provider.Generator().Generate(ctx, "Summarize ...", ai.WithTemperature(0))
package ai
