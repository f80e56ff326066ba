package uow

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fortressi/uow"

// Builder orchestrates a unit of work.
//
// Units are registered into three ordered phases: pre, main and post. Start
// runs the pre phase, Commit runs everything that has not run yet and, on
// failure, Rollback unwinds every unit that reached Run in reverse order.
//
// A Builder is itself Transactional, so it can be subscribed to another
// Builder. A Builder is not safe for concurrent use: registration and
// execution must happen on a single goroutine.
type Builder struct {
	id   uuid.UUID
	name string

	pre  []*Unit
	main []*Unit
	post []*Unit

	ordering  Ordering
	journal   *Journal
	results   *btree.Map[string, any]
	log       *zap.Logger
	tracer    trace.Tracer
	observers []Observer

	// first registration error, reported by Start and Commit
	err error
}

var _ Transactional = (*Builder)(nil)

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	id := uuid.New()
	b := &Builder{
		id:       id,
		ordering: PhaseOrder,
		journal:  newJournal(id),
		results:  btree.NewMap[string, any](8),
		log:      zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(b)
	}

	fields := []zap.Field{zap.Stringer("builder_id", b.id)}
	if b.name != "" {
		fields = append(fields, zap.String("builder", b.name))
	}
	b.log = b.log.With(fields...)

	return b
}

// ID returns the unique identifier of the builder.
func (b *Builder) ID() uuid.UUID { return b.id }

// Name returns the builder name.
func (b *Builder) Name() string { return b.name }

// Journal returns the transition log of the builder.
func (b *Builder) Journal() *Journal { return b.journal }

// Err returns the first registration error, if any.
func (b *Builder) Err() error { return b.err }

// RegisterPre appends an action and its optional rollback to the pre phase.
func (b *Builder) RegisterPre(action ActionFunc, rollback RollbackFunc) *Builder {
	return b.AddPre(NewUnit(action, rollback))
}

// Register appends an action and its optional rollback to the main phase.
func (b *Builder) Register(action ActionFunc, rollback RollbackFunc) *Builder {
	return b.Add(NewUnit(action, rollback))
}

// RegisterPost appends an action and its optional rollback to the post phase.
func (b *Builder) RegisterPost(action ActionFunc, rollback RollbackFunc) *Builder {
	return b.AddPost(NewUnit(action, rollback))
}

// AddPre appends a predefined unit to the pre phase.
func (b *Builder) AddPre(u *Unit) *Builder { return b.add(PhasePre, u) }

// Add appends a predefined unit to the main phase.
func (b *Builder) Add(u *Unit) *Builder { return b.add(PhaseMain, u) }

// AddPost appends a predefined unit to the post phase.
func (b *Builder) AddPost(u *Unit) *Builder { return b.add(PhasePost, u) }

func (b *Builder) add(phase Phase, u *Unit) *Builder {
	if u == nil || u.action == nil {
		b.setErr(fmt.Errorf("register %s unit: %w", phase, ErrNilAction))
		return b
	}

	u.phase = phase
	switch phase {
	case PhasePre:
		b.pre = append(b.pre, u)
	case PhaseMain:
		b.main = append(b.main, u)
	case PhasePost:
		b.post = append(b.post, u)
	}
	return b
}

// Subscribe composes collaborators into this unit of work. For each one, its
// Start is registered in the pre phase and its Commit in the post phase, both
// compensated by its Rollback.
func (b *Builder) Subscribe(collaborators ...Transactional) *Builder {
	for i, c := range collaborators {
		c := c
		if c == nil {
			b.setErr(fmt.Errorf("subscribe collaborator %d: %w", i, ErrNilAction))
			continue
		}
		if nested, ok := c.(*Builder); ok && nested == b {
			b.setErr(ErrSelfSubscription)
			continue
		}

		name := collaboratorName(c)
		start := NewUnit(c.Start, c.Rollback, Named(name+".start"))
		start.collaborator = c
		commit := NewUnit(func(ctx context.Context) error {
			return c.Commit(ctx)
		}, c.Rollback, Named(name+".commit"))
		commit.collaborator = c

		b.AddPre(start)
		b.AddPost(commit)
	}
	return b
}

func collaboratorName(c Transactional) string {
	if named, ok := c.(interface{ Name() string }); ok && named.Name() != "" {
		return named.Name()
	}
	return fmt.Sprintf("%T", c)
}

// Cancel removes a Waiting unit from consideration. A canceled unit is never
// run and never rolled back.
func (b *Builder) Cancel(ctx context.Context, u *Unit) error {
	if u == nil || !b.owns(u) {
		return ErrUnknownUnit
	}
	if u.status != StatusWaiting {
		return fmt.Errorf("cancel unit %s (%s): %w", u.label(), u.status, ErrNotWaiting)
	}
	b.transition(ctx, u, EventCanceled, nil)
	return nil
}

// Start runs every Waiting unit of the pre phase in registration order.
//
// If an action fails the error is returned immediately and the failing unit
// is left Running. Start does not roll back the pre units that already ran;
// call Rollback, or Commit with auto rollback, to undo them.
func (b *Builder) Start(ctx context.Context) error {
	if b.err != nil {
		return fmt.Errorf("start: %w", b.err)
	}

	ctx, span := b.tracer.Start(ctx, "uow.start", trace.WithAttributes(b.attrs()...))
	defer span.End()

	units := withStatus(b.ordering(slices.Clone(b.pre), nil, nil), StatusWaiting)
	if err := b.execute(ctx, units); err != nil {
		recordError(span, err)
		b.log.Error("start failed", zap.Error(err))
		return err
	}
	return nil
}

// Commit runs every Waiting unit across all phases, pre then main then post,
// stopping at the first failure.
//
// With auto rollback (the default) a failure triggers Rollback before the
// action error is returned. If that rollback also fails, the returned error
// is a *CommitError carrying both.
func (b *Builder) Commit(ctx context.Context, opts ...CommitOption) error {
	if b.err != nil {
		return fmt.Errorf("commit: %w", b.err)
	}
	o := newCommitOptions(opts)

	ctx, span := b.tracer.Start(ctx, "uow.commit", trace.WithAttributes(
		append(b.attrs(), attribute.Bool("uow.auto_rollback", o.autoRollback))...,
	))
	defer span.End()

	err := b.execute(ctx, withStatus(b.Units(), StatusWaiting))
	if err == nil {
		return nil
	}
	recordError(span, err)
	b.log.Error("commit failed", zap.Error(err), zap.Bool("auto_rollback", o.autoRollback))

	if !o.autoRollback {
		return err
	}
	if rbErr := b.Rollback(ctx); rbErr != nil {
		return &CommitError{Err: err, Rollback: rbErr}
	}
	return err
}

// Rollback unwinds every unit that reached Run, most recent first.
//
// Rollback is best effort: a failing compensation is recorded and the
// remaining units are still unwound. All failures are returned together as a
// *RollbackError. Units without a rollback are marked RolledBack.
func (b *Builder) Rollback(ctx context.Context) error {
	ctx, span := b.tracer.Start(ctx, "uow.rollback", trace.WithAttributes(b.attrs()...))
	defer span.End()

	units := withStatus(b.Units(), StatusRun)
	failures := newRollbackError()
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].Status() != StatusRun {
			continue
		}
		if err := b.undo(ctx, units[i]); err != nil {
			failures.add(err)
		}
	}

	if err := failures.errOrNil(); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// Units returns the registered units in effective order.
func (b *Builder) Units() []*Unit {
	return b.ordering(slices.Clone(b.pre), slices.Clone(b.main), slices.Clone(b.post))
}

// UnitsIn returns the units registered into one phase, in registration order.
func (b *Builder) UnitsIn(phase Phase) []*Unit {
	switch phase {
	case PhasePre:
		return slices.Clone(b.pre)
	case PhaseMain:
		return slices.Clone(b.main)
	case PhasePost:
		return slices.Clone(b.post)
	}
	return nil
}

func (b *Builder) execute(ctx context.Context, units []*Unit) error {
	for _, u := range units {
		// a unit listed twice has already run
		if u.Status() != StatusWaiting {
			continue
		}
		if err := b.run(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) run(ctx context.Context, u *Unit) error {
	ctx, span := b.tracer.Start(ctx, "uow.unit", trace.WithAttributes(unitAttrs(u)...))
	defer span.End()

	b.transition(ctx, u, EventStarted, nil)
	if err := u.action(ctx); err != nil {
		b.transition(ctx, u, EventFailed, err)
		recordError(span, err)
		return &ActionError{Unit: u.label(), Phase: u.phase, Err: err}
	}
	b.transition(ctx, u, EventSucceeded, nil)
	return nil
}

func (b *Builder) undo(ctx context.Context, u *Unit) error {
	b.transition(ctx, u, EventRollbackStarted, nil)
	if u.rollback == nil {
		b.transition(ctx, u, EventRolledBack, nil)
		return nil
	}

	ctx, span := b.tracer.Start(ctx, "uow.unit.rollback", trace.WithAttributes(unitAttrs(u)...))
	defer span.End()

	if err := u.rollback(ctx); err != nil {
		b.transition(ctx, u, EventRollbackFailed, err)
		recordError(span, err)
		b.log.Warn("unit rollback failed",
			zap.String("unit", u.label()),
			zap.Stringer("phase", u.phase),
			zap.Error(err),
		)
		return &UnitRollbackError{Unit: u.label(), Phase: u.phase, Err: err}
	}
	b.transition(ctx, u, EventRolledBack, nil)
	return nil
}

// transition is the only place unit status changes.
func (b *Builder) transition(ctx context.Context, u *Unit, event EventType, cause error) {
	ev, err := b.journal.record(u, event, cause)
	if err != nil {
		panic(fmt.Sprintf("uow: this is a bug in the framework: %v", err))
	}

	b.log.Debug("unit transition",
		zap.String("unit", u.label()),
		zap.Stringer("phase", u.phase),
		zap.Stringer("event", event),
		zap.Stringer("status", ev.To),
	)
	for _, o := range b.observers {
		o.Observe(ctx, ev)
	}
}

func (b *Builder) owns(u *Unit) bool {
	return slices.Contains(b.pre, u) || slices.Contains(b.main, u) || slices.Contains(b.post, u)
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) attrs() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("uow.builder.id", b.id.String())}
	if b.name != "" {
		attrs = append(attrs, attribute.String("uow.builder.name", b.name))
	}
	return attrs
}

func unitAttrs(u *Unit) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("uow.unit.id", u.id.String()),
		attribute.String("uow.unit.name", u.name),
		attribute.String("uow.unit.phase", u.phase.String()),
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func withStatus(units []*Unit, status Status) []*Unit {
	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u.status == status {
			out = append(out, u)
		}
	}
	return out
}
