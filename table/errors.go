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

package table

import "errors"

var (
	// ErrNoTables is returned when a query runs against an empty table set.
	ErrNoTables = errors.New("no tables available")

	// ErrTableNotFound is returned when a query names a table that does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrAmbiguousTable is returned when a query omits the table and more than one is available.
	ErrAmbiguousTable = errors.New("table must be named when several are available")

	// ErrUnknownColumn is returned when a query references a column the table lacks.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnsupportedOp is returned for a filter operator outside the query language.
	ErrUnsupportedOp = errors.New("unsupported filter operator")

	// ErrUnsupportedAggregate is returned for an aggregate function outside the query language.
	ErrUnsupportedAggregate = errors.New("unsupported aggregate function")

	// ErrInvalidQuery is returned when a query is structurally unusable.
	ErrInvalidQuery = errors.New("invalid table query")

	// ErrEmptyWorkbook is returned when a workbook contains no usable sheet.
	ErrEmptyWorkbook = errors.New("workbook has no tables")
)
