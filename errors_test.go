package uow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollbackErrorFormat(t *testing.T) {
	rb := newRollbackError()
	assert.NoError(t, rb.errOrNil())

	first := errors.New("first")
	rb.add(&UnitRollbackError{Unit: "b", Phase: PhaseMain, Err: first})
	rb.add(&UnitRollbackError{Unit: "a", Phase: PhasePre, Err: errors.New("second")})

	err := rb.errOrNil()
	assert.EqualError(t, err,
		"unit of work rollback failed (2 error(s)): rollback of main unit b failed: first; rollback of pre unit a failed: second")
	assert.ErrorIs(t, err, first)

	var unitErr *UnitRollbackError
	assert.ErrorAs(t, err, &unitErr)
	assert.Equal(t, "b", unitErr.Unit)
}

func TestCommitError(t *testing.T) {
	action := &ActionError{Unit: "save", Phase: PhasePost, Err: errors.New("boom")}
	rollback := errors.New("undo failed")
	err := &CommitError{Err: action, Rollback: rollback}

	assert.EqualError(t, err, "commit failed: post unit save failed: boom; undo failed")
	assert.ErrorIs(t, err, rollback)

	var actionErr *ActionError
	assert.ErrorAs(t, err, &actionErr)
	assert.Equal(t, PhasePost, actionErr.Phase)
}
