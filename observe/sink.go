package observe

import (
	"context"
	"sync"

	"github.com/abhesrivas/industriage/types"
)

// Sink receives runtime events emitted during graph execution and evaluation
// runs. Implementations must tolerate being called from the hot path.
type Sink interface {
	Emit(ctx context.Context, event types.Event) error
}

type SinkFunc func(ctx context.Context, event types.Event) error

func (f SinkFunc) Emit(ctx context.Context, event types.Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type NoopSink struct{}

func (NoopSink) Emit(ctx context.Context, event types.Event) error {
	_ = ctx
	_ = event
	return nil
}

type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		filtered = append(filtered, s)
	}
	if len(filtered) == 0 {
		return NoopSink{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &MultiSink{sinks: filtered}
}

func (m *MultiSink) Emit(ctx context.Context, event types.Event) error {
	if m == nil {
		return nil
	}
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// CollectorSink buffers events in memory for later inspection.
type CollectorSink struct {
	mu     sync.Mutex
	events []types.Event
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (c *CollectorSink) Emit(ctx context.Context, event types.Event) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *CollectorSink) Events() []types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Event(nil), c.events...)
}
