package uow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRecordsTransitions(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	b := NewBuilder()
	b.Add(NewUnit(func(context.Context) error { return nil }, nil, Named("a")))
	b.Add(NewUnit(func(context.Context) error { return boom }, nil, Named("b")))

	j := b.Journal()
	assert.False(t, j.Unwinding())

	require.Error(t, b.Commit(ctx))
	assert.True(t, j.Unwinding())

	events := j.Events()
	require.Len(t, events, 6)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, b.ID(), ev.BuilderID)
	}

	failed := events[3]
	assert.Equal(t, "b", failed.UnitName)
	assert.Equal(t, EventFailed, failed.Type)
	assert.Equal(t, StatusRunning, failed.From)
	assert.Equal(t, StatusRunning, failed.To)
	assert.ErrorIs(t, failed.Err, boom)

	last := events[5]
	assert.Equal(t, EventRolledBack, last.Type)
	assert.Equal(t, StatusRollingBack, last.From)
	assert.Equal(t, StatusRolledBack, last.To)

	since := j.Since(4)
	require.Len(t, since, 2)
	assert.Equal(t, uint64(5), since[0].Seq)
	assert.Empty(t, j.Since(6))
}

func TestJournalIllegalTransition(t *testing.T) {
	u := NewUnit(func(context.Context) error { return nil }, nil, Named("a"))
	j := newJournal(u.ID())

	_, err := j.record(u, EventSucceeded, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit a")
	assert.Equal(t, StatusWaiting, u.Status())
	assert.Equal(t, 0, j.Len())
}

func TestJournalString(t *testing.T) {
	b := NewBuilder()
	b.Register(func(context.Context) error { return nil }, nil)
	b.Add(NewUnit(func(context.Context) error { return errors.New("boom") }, nil, Named("save")))
	require.Error(t, b.Commit(context.Background()))

	out := b.Journal().String()
	t.Logf("journal:\n%s", out)

	assert.True(t, strings.HasPrefix(out, "UNIT OF WORK JOURNAL:\n"))
	assert.Contains(t, out, "direction: unwinding")
	assert.Contains(t, out, "events (6 total)")
	assert.Contains(t, out, "004 main save")
	assert.Contains(t, out, "(boom)")
}

func TestJournalConcurrentReaders(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 50; i++ {
		b.Register(func(context.Context) error { return nil }, nil)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = b.Journal().Events()
					_ = b.Journal().Unwinding()
				}
			}
		}()
	}

	require.NoError(t, b.Commit(context.Background()))
	close(done)
	wg.Wait()

	assert.Equal(t, 100, b.Journal().Len())
}
