package uow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ActionFunc performs the work of a Unit.
type ActionFunc func(ctx context.Context) error

// RollbackFunc undoes the effect of a Unit's ActionFunc. A nil RollbackFunc
// means there is nothing to undo.
type RollbackFunc func(ctx context.Context) error

// NoOpRollback is a RollbackFunc that does nothing.
func NoOpRollback(_ context.Context) error {
	return nil
}

// Phase is one of the three ordered registries of a Builder.
type Phase int

const (
	PhasePre Phase = iota
	PhaseMain
	PhasePost
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhasePre:
		return "pre"
	case PhaseMain:
		return "main"
	case PhasePost:
		return "post"
	default:
		return fmt.Sprintf("unknown phase: %d", int(p))
	}
}

// Unit is one registered step: an action, an optional rollback and the
// current status. Only the Builder that owns a unit changes its status.
type Unit struct {
	id           uuid.UUID
	name         string
	phase        Phase
	action       ActionFunc
	rollback     RollbackFunc
	status       Status
	collaborator Transactional
}

// UnitOption configures a Unit at construction.
type UnitOption func(*Unit)

// Named gives the unit a human-readable name. Names are used in logs, errors
// and the journal, and key the results of immediate units.
func Named(name string) UnitOption {
	return func(u *Unit) { u.name = name }
}

// NewUnit constructs a Waiting unit from an action and an optional rollback.
func NewUnit(action ActionFunc, rollback RollbackFunc, opts ...UnitOption) *Unit {
	u := &Unit{
		id:       uuid.New(),
		action:   action,
		rollback: rollback,
		status:   StatusWaiting,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ID returns the unique identifier of the unit.
func (u *Unit) ID() uuid.UUID { return u.id }

// Name returns the unit name, or an empty string if it was never named.
func (u *Unit) Name() string { return u.name }

// Phase returns the phase the unit was registered into.
func (u *Unit) Phase() Phase { return u.phase }

// Status returns the current status of the unit.
func (u *Unit) Status() Status { return u.status }

// HasRollback reports whether the unit has a compensating action.
func (u *Unit) HasRollback() bool { return u.rollback != nil }

// Collaborator returns the Transactional this unit was created for by
// Builder.Subscribe, or nil.
func (u *Unit) Collaborator() Transactional { return u.collaborator }

// String implements fmt.Stringer.
func (u *Unit) String() string {
	name := u.name
	if name == "" {
		name = u.id.String()[:8]
	}
	return fmt.Sprintf("%s/%s(%s)", u.phase, name, u.status)
}

// label is used for logs and errors.
func (u *Unit) label() string {
	if u.name != "" {
		return u.name
	}
	return u.id.String()
}
