package uow

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures a Builder.
type Option func(*Builder)

// WithName names the builder. The name appears in logs and, when the builder
// is subscribed to another builder, in the names of the units created for it.
func WithName(name string) Option {
	return func(b *Builder) { b.name = name }
}

// WithLogger sets the logger used by the builder. The default discards
// everything.
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log.Named("uow")
		}
	}
}

// WithTracer sets the tracer used for start, commit, rollback and unit spans.
// The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Builder) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// WithObserver adds an observer that receives every journal event.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// WithOrdering replaces the default PhaseOrder.
func WithOrdering(ordering Ordering) Option {
	return func(b *Builder) {
		if ordering != nil {
			b.ordering = ordering
		}
	}
}

// Observer is notified of every unit transition a Builder records. Observe is
// called synchronously on the builder's goroutine.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Ordering decides the effective order of a builder's units. Commit runs the
// Waiting units of the returned slice in order and Rollback unwinds its Run
// units in reverse. An ordering may filter units but must only return units
// it was given.
type Ordering func(pre, main, post []*Unit) []*Unit

// PhaseOrder is the default Ordering: every pre unit, then every main unit,
// then every post unit, each in registration order.
func PhaseOrder(pre, main, post []*Unit) []*Unit {
	out := make([]*Unit, 0, len(pre)+len(main)+len(post))
	out = append(out, pre...)
	out = append(out, main...)
	return append(out, post...)
}
