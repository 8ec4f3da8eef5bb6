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

// Package table holds the structured tables extracted from a session's
// documents and answers questions over them with a declarative query.
//
// A model never writes code that runs here. Instead it proposes a Query (filters,
// projection, a single aggregate, ordering and a row limit) which Execute
// validates against the table's columns and evaluates in memory:
//
//	q, err := table.ParseQuery(reply)
//	if err != nil {
//	    return err
//	}
//	res, err := table.Execute(ctx, tables, q, table.DefaultLimits())
//	fmt.Println(res.Text())
//
// Workbooks are loaded with LoadWorkbook, one table per sheet.
package table
