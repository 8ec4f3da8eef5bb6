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

// Package session holds the per-session state every query runs against.
//
// A Session owns exactly one vector index, one keyword index and one table
// store. Nothing is shared between sessions. A Registry is the arena that
// creates and tears sessions down by ID, and can rebuild a session's indexes
// from a storage.ChunkRepository when the session is reopened.
//
// Basic usage:
//
//	reg, err := session.NewRegistry(session.WithRepository(chunkRepo))
//	if err != nil {
//		return err
//	}
//	defer reg.CloseAll()
//
//	s, err := reg.Create()
//	if err != nil {
//		return err
//	}
//	if err := s.AddChunks(ctx, chunks...); err != nil {
//		return err
//	}
package session
