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


// Package storage provides the storage abstraction layer for attest.
//
// Sessions keep their indexes in memory. What is persisted is the material
// the indexes are derived from: chunks with their vectors, tables, and a
// record of the documents ingested. Reopening a session reloads that
// material and rebuilds the indexes, so nothing stored here is ever treated
// as a ranking result.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the repository interfaces:
//
//	chunks, docs, err := badger.NewRepositories(backend)
//
// Internal constructors may return concrete types since they are only used
// within the implementation package.
//
// # Usage
//
// Open a repository on disk:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	chunks, docs, err := badger.NewRepositories(backend)
//
// Use in tests with in-memory storage:
//
//	chunks, docs, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context. Pass context.Background()
// for operations without specific timeout requirements.
package storage
