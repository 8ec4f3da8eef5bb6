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

package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - DocID must not be empty
//   - Text must not be blank
//
// NOT validated:
//   - Vector (chunks without a vector are only reachable through keyword search)
//   - SourceURI (optional)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyID)
	}
	if chunk.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocID)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	return nil
}

// ValidateSubQuestion checks that a sub-question has text and a known kind.
func ValidateSubQuestion(sq *SubQuestion) error {
	if sq == nil {
		return fmt.Errorf("%w: sub-question is nil", ErrInvalidSubQuestion)
	}
	if strings.TrimSpace(sq.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubQuestion, ErrEmptyContent)
	}
	if err := ValidateKind(sq.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubQuestion, err)
	}
	return nil
}

// ValidateKind validates that a SubQuestionKind has a valid value.
func ValidateKind(kind SubQuestionKind) error {
	if kind != KindText && kind != KindTable {
		return fmt.Errorf("%w: value %q", ErrInvalidKind, kind)
	}
	return nil
}

// ValidateTable validates a Table according to domain rules.
//
// Validation rules:
//   - DocID must not be empty
//   - Columns must not be empty
//   - Every row has exactly len(Columns) cells
func ValidateTable(table *Table) error {
	if table == nil {
		return fmt.Errorf("%w: table is nil", ErrInvalidTable)
	}
	if table.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTable, ErrEmptyDocID)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, ErrNoColumns)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("%w: %w: row %d has %d cells, want %d",
				ErrInvalidTable, ErrRaggedRow, i, len(row), len(table.Columns))
		}
	}
	return nil
}
