package app

import (
	"sync"

	"github.com/evanschultz/shortlist/internal/domain"
)

// Event is one engine notification for the host UI. The set is closed.
type Event interface {
	EventName() string
	sealedEvent()
}

// SessionStartedEvent reports a newly captured snapshot.
type SessionStartedEvent struct {
	RoleID     string
	Generation uint64
	Total      int
	Len        int
}

// SessionResetEvent reports that the snapshot was discarded.
type SessionResetEvent struct {
	RoleID     string
	Generation uint64
}

// CursorResetEvent reports a filter change that moved the cursor back to zero.
type CursorResetEvent struct {
	Generation uint64
	Filter     Filter
	Len        int
}

// CursorAdvancedEvent reports a cursor move after a successful commit.
type CursorAdvancedEvent struct {
	Generation uint64
	Cursor     int
	Len        int
	Decision   domain.Decision
}

// ExhaustedEvent reports that no items remain at or after the cursor.
type ExhaustedEvent struct {
	Generation uint64
	Len        int
}

// CommitStartedEvent reports that the guard was taken for an item.
type CommitStartedEvent struct {
	Generation  uint64
	ApplicantID string
	Zone        domain.ActionZone
}

// CommitFailedEvent reports a recoverable mutation failure; the same item stays on top.
type CommitFailedEvent struct {
	Generation  uint64
	ApplicantID string
	Zone        domain.ActionZone
	Err         error
}

// SlotsChangedEvent carries the new Top/Back pair to paint.
type SlotsChangedEvent struct {
	Top  Slot
	Back Slot
}

func (SessionStartedEvent) EventName() string { return "session_started" }
func (SessionResetEvent) EventName() string   { return "session_reset" }
func (CursorResetEvent) EventName() string    { return "cursor_reset" }
func (CursorAdvancedEvent) EventName() string { return "cursor_advanced" }
func (ExhaustedEvent) EventName() string      { return "exhausted" }
func (CommitStartedEvent) EventName() string  { return "commit_started" }
func (CommitFailedEvent) EventName() string   { return "commit_failed" }
func (SlotsChangedEvent) EventName() string   { return "slots_changed" }

func (SessionStartedEvent) sealedEvent() {}
func (SessionResetEvent) sealedEvent()   {}
func (CursorResetEvent) sealedEvent()    {}
func (CursorAdvancedEvent) sealedEvent() {}
func (ExhaustedEvent) sealedEvent()      {}
func (CommitStartedEvent) sealedEvent()  {}
func (CommitFailedEvent) sealedEvent()   {}
func (SlotsChangedEvent) sealedEvent()   {}

// Emitter fans events out to subscriber channels without blocking the publisher.
// A full subscriber channel drops the event for that subscriber.
type Emitter struct {
	mu         sync.RWMutex
	subs       map[int]chan Event
	nextID     int
	bufferSize int
	closed     bool
}

// NewEmitter creates an emitter with the given per-subscriber buffer.
func NewEmitter(bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Emitter{subs: map[int]chan Event{}, bufferSize: bufferSize}
}

// Subscribe registers a channel subscriber and returns it with its unsubscribe func.
func (e *Emitter) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Event, e.bufferSize)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
}

// Publish delivers events to every subscriber.
func (e *Emitter) Publish(events ...Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ev := range events {
		for _, ch := range e.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Close closes all subscriber channels.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
