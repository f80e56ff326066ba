package uow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrNilAction is recorded when a unit is registered without an action.
	ErrNilAction = errors.New("unit action is nil")

	// ErrNotWaiting is returned when canceling a unit that has already left
	// the Waiting status.
	ErrNotWaiting = errors.New("unit is not waiting")

	// ErrUnknownUnit is returned when a unit is not registered with the builder.
	ErrUnknownUnit = errors.New("unit is not registered with this builder")

	// ErrSelfSubscription is recorded when a builder subscribes itself.
	ErrSelfSubscription = errors.New("builder cannot subscribe to itself")

	// ErrStepNotFound is returned by Catalog.Get for an unknown step name.
	ErrStepNotFound = errors.New("step not found")

	// ErrDuplicateStep is returned when registering a step name twice.
	ErrDuplicateStep = errors.New("step already registered")
)

// ActionError represents the failure of a unit's action.
type ActionError struct {
	Unit  string
	Phase Phase
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s unit %s failed: %v", e.Phase, e.Unit, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UnitRollbackError represents the failure of a single unit's rollback.
type UnitRollbackError struct {
	Unit  string
	Phase Phase
	Err   error
}

func (e *UnitRollbackError) Error() string {
	return fmt.Sprintf("rollback of %s unit %s failed: %v", e.Phase, e.Unit, e.Err)
}

func (e *UnitRollbackError) Unwrap() error {
	return e.Err
}

// RollbackError aggregates every rollback failure of one Rollback pass, in
// the order the failing rollbacks were attempted.
type RollbackError struct {
	merr *multierror.Error
}

func newRollbackError() *RollbackError {
	return &RollbackError{merr: &multierror.Error{ErrorFormat: formatRollbackErrors}}
}

func (e *RollbackError) add(err error) {
	e.merr = multierror.Append(e.merr, err)
}

func (e *RollbackError) errOrNil() error {
	if e.merr.Len() == 0 {
		return nil
	}
	return e
}

// Errors returns the individual rollback failures.
func (e *RollbackError) Errors() []error {
	return e.merr.WrappedErrors()
}

func (e *RollbackError) Error() string {
	return e.merr.Error()
}

func (e *RollbackError) Unwrap() []error {
	return e.merr.WrappedErrors()
}

func formatRollbackErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("unit of work rollback failed (%d error(s)): %s", len(errs), strings.Join(msgs, "; "))
}

// CommitError is returned by Commit when an action failed and the automatic
// rollback that followed also failed.
type CommitError struct {
	Err      error
	Rollback error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed: %v; %v", e.Err, e.Rollback)
}

func (e *CommitError) Unwrap() []error {
	return []error{e.Err, e.Rollback}
}
