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

// Package reembed rewrites the vectors of a persisted session's chunks with
// a new or updated embedding model.
//
// Chunks are read from a storage.ChunkRepository in batches, embedded with
// retry and exponential backoff, normalized to unit length and written back
// in place. Chunk IDs, text and order are unchanged, so a reopened session
// rebuilds its indexes from the new vectors.
package reembed
