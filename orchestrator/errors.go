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

package orchestrator

import "errors"

var (
	// ErrPipelineRequired is returned when no simple path is configured.
	ErrPipelineRequired = errors.New("simple path pipeline required")

	// ErrGeneratorRequired is returned when no generator is configured.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrWorkspaceRequired is returned when Answer is called without a workspace.
	ErrWorkspaceRequired = errors.New("workspace required")

	// ErrEmptyQuery is returned for a blank question.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrNoEvidence marks a sub-question whose resolution produced nothing usable.
	ErrNoEvidence = errors.New("no evidence found")
)
