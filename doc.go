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

// Package attest answers questions over a session's documents and checks
// every answer against the evidence it was built from.
//
// An Engine routes each question either to the simple path (hybrid
// retrieval followed by grounded generation) or to the decomposition
// orchestrator, then verifies the claims of the answer against the
// retrieved chunks:
//
//	engine, err := attest.Open("./attest.db", attest.WithAIConfig(ai.DefaultConfig()))
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	s, _ := engine.Sessions().Create()
//	pipeline, _ := engine.NewIngestionPipeline()
//	defer pipeline.Release()
//	pipeline.IngestFile(ctx, s, "trial.pdf")
//
//	resp, err := engine.Ask(ctx, s.ID(), "What was the response rate?", nil)
//
// Partial failures never fail a question. They are listed in
// Response.Degradations and the response status becomes DEGRADED.
package attest
