package uow

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

// Event is one recorded status transition of a unit.
type Event struct {
	Seq       uint64
	BuilderID uuid.UUID
	UnitID    uuid.UUID
	UnitName  string
	Phase     Phase
	Type      EventType
	From      Status
	To        Status
	Err       error
	At        time.Time
}

// String implements fmt.Stringer.
func (e Event) String() string {
	name := e.UnitName
	if name == "" {
		name = e.UnitID.String()[:8]
	}
	s := fmt.Sprintf("%-4s %-12s %-16s %s -> %s", e.Phase, name, e.Type, e.From, e.To)
	if e.Err != nil {
		s += fmt.Sprintf(" (%v)", e.Err)
	}
	return s
}

// Journal is the in-memory transition log of a Builder.
//
// The Builder is its only writer. Readers may call any method from other
// goroutines.
type Journal struct {
	mu        sync.Mutex
	builderID uuid.UUID
	seq       uint64
	unwinding bool
	events    *btree.Map[uint64, Event]
}

func newJournal(builderID uuid.UUID) *Journal {
	return &Journal{
		builderID: builderID,
		events:    btree.NewMap[uint64, Event](16),
	}
}

// record applies event to the unit and appends it to the log. It returns the
// recorded event with its sequence number filled in.
func (j *Journal) record(u *Unit, event EventType, err error) (Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	to, terr := u.status.next(event)
	if terr != nil {
		return Event{}, fmt.Errorf("unit %s: %w", u.label(), terr)
	}

	j.seq++
	ev := Event{
		Seq:       j.seq,
		BuilderID: j.builderID,
		UnitID:    u.id,
		UnitName:  u.name,
		Phase:     u.phase,
		Type:      event,
		From:      u.status,
		To:        to,
		Err:       err,
		At:        time.Now(),
	}

	switch event {
	case EventFailed, EventRollbackStarted:
		j.unwinding = true
	}

	u.status = to
	j.events.Set(ev.Seq, ev)
	return ev, nil
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.events.Len()
}

// Events returns every recorded event in order.
func (j *Journal) Events() []Event {
	return j.Since(0)
}

// Since returns the events with a sequence number greater than seq.
func (j *Journal) Since(seq uint64) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Event, 0, j.events.Len())
	j.events.Ascend(seq+1, func(_ uint64, ev Event) bool {
		out = append(out, ev)
		return true
	})
	return out
}

// Unwinding reports whether a unit has failed or a rollback has begun.
func (j *Journal) Unwinding() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.unwinding
}

// String implements fmt.Stringer with a readable dump of the journal.
func (j *Journal) String() string {
	events := j.Events()
	direction := "forward"
	if j.Unwinding() {
		direction = "unwinding"
	}

	var sb strings.Builder
	sb.WriteString("UNIT OF WORK JOURNAL:\n")
	sb.WriteString(fmt.Sprintf("builder:   %s\n", j.builderID))
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(events)))
	sb.WriteString("\n")
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", ev.Seq, ev.String()))
	}
	return sb.String()
}
