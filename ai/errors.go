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

package ai

import "errors"

var (
	// ErrInputTooLong is returned when input exceeds the model's token limit.
	ErrInputTooLong = errors.New("input too long for model")

	// ErrMalformedEmbedding is returned when an embedding response does not
	// match the request in count or dimension.
	ErrMalformedEmbedding = errors.New("malformed embedding response")

	// ErrMalformedResponse is returned when a structured reply cannot be decoded.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrEmptyResponse is returned when the model returns no choices.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrServiceUnavailable is returned when the model service is refusing calls,
	// for example while its circuit breaker is open.
	ErrServiceUnavailable = errors.New("model service unavailable")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
