package uow

import (
	"fmt"
)

// Status is the lifecycle state of a Unit.
//
// A unit moves forward through Waiting, Running and Run. Once Run it may be
// unwound through RollingBack into RolledBack or RollbackFailed. Canceled is
// only reachable from Waiting, via Builder.Cancel.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusRun
	StatusCanceled
	StatusRollingBack
	StatusRolledBack
	StatusRollbackFailed
)

var statusNames = map[Status]string{
	StatusWaiting:        "waiting",
	StatusRunning:        "running",
	StatusRun:            "run",
	StatusCanceled:       "canceled",
	StatusRollingBack:    "rolling_back",
	StatusRolledBack:     "rolled_back",
	StatusRollbackFailed: "rollback_failed",
}

// String returns the string representation of the Status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown status: %d", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid status: %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("invalid status: %q", string(text))
}

// Terminal reports whether no further transition can leave this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCanceled, StatusRolledBack, StatusRollbackFailed:
		return true
	}
	return false
}

// EventType identifies a transition recorded in the Journal.
type EventType int

const (
	EventStarted EventType = iota
	EventSucceeded
	EventFailed
	EventImmediate
	EventCanceled
	EventRollbackStarted
	EventRolledBack
	EventRollbackFailed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventImmediate:
		return "immediate"
	case EventCanceled:
		return "canceled"
	case EventRollbackStarted:
		return "rollback_started"
	case EventRolledBack:
		return "rolled_back"
	case EventRollbackFailed:
		return "rollback_failed"
	default:
		return fmt.Sprintf("unknown event type: %d", int(e))
	}
}

// next returns the status a unit moves to after the given event.
//
// A failed action leaves the unit in Running: nothing about it has completed
// and it is never eligible for rollback.
func (s Status) next(event EventType) (Status, error) {
	switch s {
	case StatusWaiting:
		switch event {
		case EventStarted:
			return StatusRunning, nil
		case EventImmediate:
			return StatusRun, nil
		case EventCanceled:
			return StatusCanceled, nil
		}
	case StatusRunning:
		switch event {
		case EventSucceeded:
			return StatusRun, nil
		case EventFailed:
			return StatusRunning, nil
		}
	case StatusRun:
		if event == EventRollbackStarted {
			return StatusRollingBack, nil
		}
	case StatusRollingBack:
		switch event {
		case EventRolledBack:
			return StatusRolledBack, nil
		case EventRollbackFailed:
			return StatusRollbackFailed, nil
		}
	}

	return s, fmt.Errorf("illegal event %s for status %s", event, s)
}
