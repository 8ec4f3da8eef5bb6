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

// Package orchestrator answers complex questions by decomposition.
//
// A question is split into at most five sub-questions, each tagged TEXT or
// TABLE. TEXT sub-questions run the simple retrieval path and are answered
// from the retrieved chunks; TABLE sub-questions are planned as declarative
// table queries and executed against the session's tables. The evidence is
// then synthesized into one answer.
//
// The orchestrator never aborts on a failed refinement. A sub-question that
// fails becomes a failed evidence item, a synthesis failure falls back to the
// concatenated findings, and a failed decomposition call or a run with no
// usable evidence falls back to the simple path on the original question.
// Any of these marks the result DEGRADED.
package orchestrator
