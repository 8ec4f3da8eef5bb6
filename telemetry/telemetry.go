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

// Package telemetry exposes the OpenTelemetry tracer and metrics used across attest.
//
// Both use the global otel providers, so they are no-ops until the host
// application installs an SDK.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/poiesic/attest"

// Tracer returns the tracer shared by all attest components.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Metrics holds the counters and histograms recorded while answering questions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Degradations   metric.Int64Counter
	Verifications  metric.Int64Counter
	Routes         metric.Int64Counter
	AskDuration    metric.Float64Histogram
	BreakerChanges metric.Int64Counter
}

// NewMetrics registers the attest instruments with the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	degradations, err := meter.Int64Counter(
		"attest.degradations.total",
		metric.WithDescription("Optional refinement steps that degraded"),
	)
	if err != nil {
		return nil, err
	}

	verifications, err := meter.Int64Counter(
		"attest.verifications.total",
		metric.WithDescription("Verified claims by status"),
	)
	if err != nil {
		return nil, err
	}

	routes, err := meter.Int64Counter(
		"attest.routes.total",
		metric.WithDescription("Routed questions by route"),
	)
	if err != nil {
		return nil, err
	}

	askDuration, err := meter.Float64Histogram(
		"attest.ask.duration",
		metric.WithDescription("Question answering duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	breakerChanges, err := meter.Int64Counter(
		"attest.circuit_breaker.state_changes",
		metric.WithDescription("Model service circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Degradations:   degradations,
		Verifications:  verifications,
		Routes:         routes,
		AskDuration:    askDuration,
		BreakerChanges: breakerChanges,
	}, nil
}

// Degraded counts a degradation of the named stage.
func (m *Metrics) Degraded(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.Degradations.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// Verified counts a claim verification outcome.
func (m *Metrics) Verified(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Routed counts a routing decision.
func (m *Metrics) Routed(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.Routes.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// ObserveAsk records how long a question took to answer.
func (m *Metrics) ObserveAsk(ctx context.Context, route string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AskDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// BreakerChanged counts a circuit breaker transition.
func (m *Metrics) BreakerChanged(ctx context.Context, name, from, to string) {
	if m == nil {
		return
	}
	m.BreakerChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
