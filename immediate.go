package uow

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// ImmediateFunc is an action whose result is needed while the unit of work is
// still being assembled.
type ImmediateFunc[R any] func(ctx context.Context) (R, error)

// RegisterImmediate runs action right away and returns its result.
//
// On success a main-phase unit is appended to b in status Run, so it is
// compensated by rollback if the unit of work later unwinds. A named unit
// stores its result for Lookup and LookupTyped. On failure nothing is
// registered and the error is returned as an *ActionError.
//
// This is a function rather than a method because Go methods cannot take
// type parameters.
func RegisterImmediate[R any](ctx context.Context, b *Builder, action ImmediateFunc[R], rollback RollbackFunc, opts ...UnitOption) (R, error) {
	var zero R
	if action == nil {
		return zero, ErrNilAction
	}

	// The stored action is never run again; the unit is created already Run.
	u := NewUnit(func(ctx context.Context) error {
		_, err := action(ctx)
		return err
	}, rollback, opts...)
	u.phase = PhaseMain

	ctx, span := b.tracer.Start(ctx, "uow.immediate", trace.WithAttributes(unitAttrs(u)...))
	defer span.End()

	result, err := action(ctx)
	if err != nil {
		recordError(span, err)
		return zero, &ActionError{Unit: u.label(), Phase: PhaseMain, Err: err}
	}

	b.add(PhaseMain, u)
	b.transition(ctx, u, EventImmediate, nil)
	if u.name != "" {
		b.results.Set(u.name, result)
	}
	return result, nil
}

// Lookup returns the result stored by a named immediate unit.
func (b *Builder) Lookup(name string) (any, bool) {
	return b.results.Get(name)
}

// LookupTyped returns the result stored by a named immediate unit, asserted to
// R. It reports false if the name is unknown or the result is not an R.
func LookupTyped[R any](b *Builder, name string) (R, bool) {
	var zero R
	value, found := b.Lookup(name)
	if !found {
		return zero, false
	}
	typed, ok := value.(R)
	if !ok {
		return zero, false
	}
	return typed, true
}
