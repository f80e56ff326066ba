package uow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from  Status
		event EventType
		to    Status
	}{
		{StatusWaiting, EventStarted, StatusRunning},
		{StatusWaiting, EventImmediate, StatusRun},
		{StatusWaiting, EventCanceled, StatusCanceled},
		{StatusRunning, EventSucceeded, StatusRun},
		{StatusRunning, EventFailed, StatusRunning},
		{StatusRun, EventRollbackStarted, StatusRollingBack},
		{StatusRollingBack, EventRolledBack, StatusRolledBack},
		{StatusRollingBack, EventRollbackFailed, StatusRollbackFailed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			to, err := tt.from.next(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestStatusIllegalTransitions(t *testing.T) {
	tests := []struct {
		from  Status
		event EventType
	}{
		{StatusWaiting, EventSucceeded},
		{StatusWaiting, EventRollbackStarted},
		{StatusRunning, EventRollbackStarted},
		{StatusRun, EventStarted},
		{StatusRun, EventCanceled},
		{StatusCanceled, EventStarted},
		{StatusRolledBack, EventRollbackStarted},
		{StatusRollbackFailed, EventRollbackStarted},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			to, err := tt.from.next(tt.event)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "illegal event")
			assert.Equal(t, tt.from, to)
		})
	}
}

func TestStatusText(t *testing.T) {
	for status, name := range statusNames {
		text, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		var parsed Status
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, status, parsed)
	}

	_, err := Status(42).MarshalText()
	assert.Error(t, err)

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("finished")))
	assert.Equal(t, "unknown status: 42", Status(42).String())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusWaiting.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusRun.Terminal())
	assert.False(t, StatusRollingBack.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.True(t, StatusRolledBack.Terminal())
	assert.True(t, StatusRollbackFailed.Terminal())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "pre", PhasePre.String())
	assert.Equal(t, "main", PhaseMain.String())
	assert.Equal(t, "post", PhasePost.String())
	assert.Equal(t, "unknown phase: 5", Phase(5).String())
}
