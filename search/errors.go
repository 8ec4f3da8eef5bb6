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


package search

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrSourceRequired is returned when retrieval is attempted without a source.
	ErrSourceRequired = errors.New("search source required")

	// ErrDuplicateChunk is returned when a chunk ID is inserted twice.
	ErrDuplicateChunk = errors.New("duplicate chunk id")

	// ErrDimensionMismatch is returned when a vector's dimension differs from the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVector is returned when inserting a zero-length vector.
	ErrEmptyVector = errors.New("empty vector")

	// ErrEmptyQuery is returned when reranking a blank query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidWeights is returned for unusable reranker constants.
	ErrInvalidWeights = errors.New("invalid reranker configuration")

	// ErrRetrievalUnavailable is returned when both the vector and the keyword
	// index fail for a query.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)
