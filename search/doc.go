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


// Package search provides hybrid semantic and lexical retrieval.
//
// The Retriever implements the simple retrieval path:
//   - Vector search over L2-normalized embeddings (VectorIndex)
//   - BM25 keyword search over lowercase whitespace tokens (KeywordIndex)
//   - Reciprocal rank fusion of the two ranked lists (Fuse)
//   - Signal-based reranking of the fused candidates (Reranker)
//
// Reranking is an optional refinement: if it fails, the fused order is used.
// Only the failure of both indexes makes retrieval fail. A DocFilter restricts
// every stage to an allowed set of documents.
package search
