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

// Package verify checks a generated answer against the chunks it was
// generated from.
//
// The answer is split into candidate claims (ExtractClaims). Each claim is
// classified against every chunk with a natural-language-inference prompt and
// the per-chunk labels are aggregated with the priority
// SUPPORTS > REFUTES > NOT_MENTIONED (Verifier.Verify). Annotate then attaches
// at most one badge per claim to the sentence of the answer it best matches.
//
// Verification never blocks an answer: a failed call degrades its claim to
// NOT_MENTIONED, and only when every call fails does Verify return an error.
package verify
