// Package otel bridges the observe.Sink to OpenTelemetry tracing.
//
// It converts runtime events into OTel spans so evaluation runs and their
// per-step activity are visible in any OpenTelemetry-compatible backend.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/abhesrivas/industriage/types"
)

const instrumentationName = "github.com/abhesrivas/industriage"

// Sink implements observe.Sink by emitting one short span per event.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider. A nil provider
// falls back to a noop tracer.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{tracer: tp.Tracer(instrumentationName)}
}

func (s *Sink) Emit(_ context.Context, event types.Event) error {
	if s == nil || s.tracer == nil {
		return nil
	}
	start := event.Timestamp
	if start.IsZero() {
		start = time.Now().UTC()
	}

	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(start))
	attrs := []attribute.KeyValue{
		attribute.String("eval.event.type", string(event.Type)),
	}
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("eval.run.id", event.RunID))
	}
	if event.Workflow != "" {
		attrs = append(attrs, attribute.String("eval.workflow", event.Workflow))
	}
	if event.StepName != "" {
		attrs = append(attrs, attribute.String("eval.step", event.StepName))
	}
	if event.ItemIndex > 0 {
		attrs = append(attrs, attribute.Int("eval.item.index", event.ItemIndex))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("eval.message", event.Message))
	}
	span.SetAttributes(attrs...)

	if event.Error != "" {
		span.SetStatus(codes.Error, event.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(start))
	return nil
}

func spanNameFor(event types.Event) string {
	if event.StepName != "" {
		return string(event.Type) + ":" + event.StepName
	}
	return string(event.Type)
}
