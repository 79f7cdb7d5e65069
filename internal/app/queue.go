package app

import (
	"slices"
	"strings"
	"sync"

	"github.com/evanschultz/shortlist/internal/domain"
)

// InitialOrder selects which item a new session starts from.
type InitialOrder struct {
	FocusID    string
	FocusIndex int
	HasIndex   bool
}

// Filter holds the allowed process states and status tags for a filtered view.
type Filter struct {
	States []domain.ProcessState
	Tags   []string
}

// NewFilter builds a filter whose values match either an item's process state or its status tag.
func NewFilter(values ...string) Filter {
	f := Filter{}
	for _, raw := range values {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		f.States = append(f.States, domain.ProcessState(value))
		f.Tags = append(f.Tags, value)
	}
	return f
}

// Empty reports whether the filter passes every item.
func (f Filter) Empty() bool {
	return len(f.States) == 0 && len(f.Tags) == 0
}

// Allows reports whether an item passes the filter.
func (f Filter) Allows(item domain.Applicant) bool {
	if f.Empty() {
		return true
	}
	if slices.Contains(f.States, domain.NormalizeProcessState(item.ProcessState)) {
		return true
	}
	return slices.Contains(f.Tags, strings.ToLower(strings.TrimSpace(item.StatusTag)))
}

// String renders the filter for headers and logs.
func (f Filter) String() string {
	if f.Empty() {
		return "all"
	}
	seen := map[string]struct{}{}
	parts := make([]string, 0, len(f.States)+len(f.Tags))
	for _, state := range f.States {
		if _, ok := seen[string(state)]; !ok {
			seen[string(state)] = struct{}{}
			parts = append(parts, string(state))
		}
	}
	for _, tag := range f.Tags {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			parts = append(parts, tag)
		}
	}
	return strings.Join(parts, ",")
}

// QueueState is a point-in-time view of the queue.
type QueueState struct {
	Active     bool
	Generation uint64
	Cursor     int
	Len        int
	Total      int
	Exhausted  bool
	Filter     Filter
}

// QueueManager owns the stable session snapshot, the filtered view and the cursor.
type QueueManager struct {
	mu         sync.Mutex
	active     bool
	generation uint64
	snapshot   []domain.Applicant
	filter     Filter
	view       []int
	cursor     int
}

// NewQueueManager constructs an idle queue manager.
func NewQueueManager() *QueueManager {
	return &QueueManager{}
}

// StartSession captures a stable snapshot of items, rotated per order, and returns the new generation.
func (q *QueueManager) StartSession(items []domain.Applicant, order InitialOrder) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.startLocked(items, order)
}

// Offer starts a session from newly arrived data when none is active; pushes during a session are ignored.
func (q *QueueManager) Offer(items []domain.Applicant, order InitialOrder) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active {
		return false
	}
	q.startLocked(items, order)
	return true
}

func (q *QueueManager) startLocked(items []domain.Applicant, order InitialOrder) uint64 {
	q.generation++
	q.active = true
	q.snapshot = rotate(slices.Clone(items), order)
	q.cursor = 0
	q.rebuildViewLocked()
	return q.generation
}

// ApplyFilter derives a new filtered view from the snapshot and resets the cursor to zero.
func (q *QueueManager) ApplyFilter(filter Filter) QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.filter = filter
	q.cursor = 0
	q.rebuildViewLocked()
	return q.stateLocked()
}

// ResetSession discards the snapshot and cursor; the next data arrival starts a new session.
func (q *QueueManager) ResetSession() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	q.active = false
	q.snapshot = nil
	q.view = nil
	q.cursor = 0
	return q.generation
}

// CurrentItem returns the item under the cursor.
func (q *QueueManager) CurrentItem() (domain.Applicant, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemAtLocked(q.cursor)
}

// PeekNext returns the item after the cursor.
func (q *QueueManager) PeekNext() (domain.Applicant, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemAtLocked(q.cursor + 1)
}

// ItemAt returns the item at an offset from the cursor.
func (q *QueueManager) ItemAt(offset int) (domain.Applicant, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemAtLocked(q.cursor + offset)
}

// Advance moves the cursor forward. At the end of the view it is a no-op.
func (q *QueueManager) Advance() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active && q.cursor < len(q.view) {
		q.cursor++
	}
	return q.stateLocked()
}

// AdvanceIf advances only when the session generation still matches and itemID is still under the
// cursor. A filter change mid-commit moves the cursor to another item, which must not be skipped.
func (q *QueueManager) AdvanceIf(generation uint64, itemID string) (QueueState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.active || q.generation != generation {
		return q.stateLocked(), ErrSessionStale
	}
	if current, ok := q.itemAtLocked(q.cursor); !ok || current.ID != itemID {
		return q.stateLocked(), ErrSessionStale
	}
	if q.cursor < len(q.view) {
		q.cursor++
	}
	return q.stateLocked(), nil
}

// Exhausted reports whether no items remain at or after the cursor.
func (q *QueueManager) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active && q.cursor >= len(q.view)
}

// State returns a point-in-time view of the queue.
func (q *QueueManager) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

// Generation returns the current session generation.
func (q *QueueManager) Generation() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.generation
}

// Items returns the filtered view in order.
func (q *QueueManager) Items() []domain.Applicant {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Applicant, 0, len(q.view))
	for _, idx := range q.view {
		out = append(out, q.snapshot[idx])
	}
	return out
}

func (q *QueueManager) itemAtLocked(pos int) (domain.Applicant, bool) {
	if !q.active || pos < 0 || pos >= len(q.view) {
		return domain.Applicant{}, false
	}
	return q.snapshot[q.view[pos]], true
}

func (q *QueueManager) rebuildViewLocked() {
	q.view = q.view[:0]
	for idx, item := range q.snapshot {
		if q.filter.Allows(item) {
			q.view = append(q.view, idx)
		}
	}
}

func (q *QueueManager) stateLocked() QueueState {
	return QueueState{
		Active:     q.active,
		Generation: q.generation,
		Cursor:     q.cursor,
		Len:        len(q.view),
		Total:      len(q.snapshot),
		Exhausted:  q.active && q.cursor >= len(q.view),
		Filter:     q.filter,
	}
}

// rotate moves the focused item to the front, keeping wrap-around order.
func rotate(items []domain.Applicant, order InitialOrder) []domain.Applicant {
	if len(items) == 0 {
		return items
	}
	start := -1
	if id := strings.TrimSpace(order.FocusID); id != "" {
		start = slices.IndexFunc(items, func(item domain.Applicant) bool { return item.ID == id })
	}
	if start < 0 && order.HasIndex {
		start = clampInt(order.FocusIndex, 0, len(items)-1)
	}
	if start <= 0 {
		return items
	}
	out := make([]domain.Applicant, 0, len(items))
	out = append(out, items[start:]...)
	return append(out, items[:start]...)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
