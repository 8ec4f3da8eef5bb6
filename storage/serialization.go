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

package storage

import (
	"fmt"
	"math"

	"github.com/poiesic/attest/core"
)

// Record is any value kept in the store.
type Record interface {
	core.Chunk | core.Table | core.Document | core.SessionInfo
}

// Marshal serializes a stored record to bytes. Chunks with non-finite vector
// components are rejected since they cannot be ranked.
func Marshal[T Record](record *T) ([]byte, error) {
	switch r := any(record).(type) {
	case *core.Chunk:
		for i, f := range r.Vector {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return nil, fmt.Errorf("%w: chunk %s: vector component %d is not finite", ErrSerializationFailed, r.ID, i)
			}
		}
		buf := make([]byte, core.ChunkMUS.Size(*r))
		core.ChunkMUS.Marshal(*r, buf)
		return buf, nil
	case *core.Table:
		buf := make([]byte, core.TableMUS.Size(*r))
		core.TableMUS.Marshal(*r, buf)
		return buf, nil
	case *core.Document:
		buf := make([]byte, core.DocumentMUS.Size(*r))
		core.DocumentMUS.Marshal(*r, buf)
		return buf, nil
	case *core.SessionInfo:
		buf := make([]byte, core.SessionInfoMUS.Size(*r))
		core.SessionInfoMUS.Marshal(*r, buf)
		return buf, nil
	}
	return nil, fmt.Errorf("%w: unsupported record %T", ErrSerializationFailed, record)
}

// Unmarshal deserializes a stored record from bytes. Trailing bytes are an
// error.
func Unmarshal[T Record](data []byte) (*T, error) {
	var (
		record T
		n      int
		err    error
	)
	switch r := any(&record).(type) {
	case *core.Chunk:
		*r, n, err = core.ChunkMUS.Unmarshal(data)
	case *core.Table:
		*r, n, err = core.TableMUS.Unmarshal(data)
	case *core.Document:
		*r, n, err = core.DocumentMUS.Unmarshal(data)
	case *core.SessionInfo:
		*r, n, err = core.SessionInfoMUS.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &record, nil
}
