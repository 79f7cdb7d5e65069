package app

import (
	"errors"
	"slices"
	"testing"

	"github.com/evanschultz/shortlist/internal/domain"
)

func threeApplicants() []domain.Applicant {
	return []domain.Applicant{
		mustApplicant("a", domain.StateApplied, 0),
		mustApplicant("b", domain.StateApplied, 1),
		mustApplicant("c", domain.StateShortlisted, 2),
	}
}

// TestStartSessionInitialOrder verifies focus rotation and its fallbacks.
func TestStartSessionInitialOrder(t *testing.T) {
	cases := []struct {
		name  string
		order InitialOrder
		want  []string
	}{
		{name: "natural", order: InitialOrder{}, want: []string{"a", "b", "c"}},
		{name: "focus id rotates with wrap", order: InitialOrder{FocusID: "b"}, want: []string{"b", "c", "a"}},
		{name: "missing id falls back to index", order: InitialOrder{FocusID: "zz", FocusIndex: 2, HasIndex: true}, want: []string{"c", "a", "b"}},
		{name: "index clamped high", order: InitialOrder{FocusIndex: 99, HasIndex: true}, want: []string{"c", "a", "b"}},
		{name: "index clamped low", order: InitialOrder{FocusIndex: -4, HasIndex: true}, want: []string{"a", "b", "c"}},
		{name: "missing id without index keeps order", order: InitialOrder{FocusID: "zz"}, want: []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := NewQueueManager()
			q.StartSession(threeApplicants(), tc.order)
			if got := ids(q.Items()); !slices.Equal(got, tc.want) {
				t.Fatalf("Items() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestStartSessionDoesNotAliasInput verifies the snapshot is a private copy.
func TestStartSessionDoesNotAliasInput(t *testing.T) {
	items := threeApplicants()
	q := NewQueueManager()
	q.StartSession(items, InitialOrder{})
	items[0] = mustApplicant("x", domain.StateApplied, 0)
	current, _ := q.CurrentItem()
	if current.ID != "a" {
		t.Fatalf("CurrentItem() = %q, want a", current.ID)
	}
}

// TestOfferKeepsSnapshotStable verifies background pushes never move the current item.
func TestOfferKeepsSnapshotStable(t *testing.T) {
	q := NewQueueManager()
	if !q.Offer(threeApplicants(), InitialOrder{}) {
		t.Fatal("Offer() expected first push to start a session")
	}
	q.Advance()
	before, _ := q.CurrentItem()

	refetches := [][]domain.Applicant{
		nil,
		{mustApplicant("z", domain.StateApplied, 0)},
		{mustApplicant("c", domain.StateApplied, 0), mustApplicant("a", domain.StateRejected, 1)},
	}
	for _, items := range refetches {
		if q.Offer(items, InitialOrder{FocusID: "z"}) {
			t.Fatal("Offer() started a session while one was active")
		}
		after, _ := q.CurrentItem()
		if after.ID != before.ID {
			t.Fatalf("CurrentItem() changed from %q to %q after refetch", before.ID, after.ID)
		}
	}

	q.ResetSession()
	if _, ok := q.CurrentItem(); ok {
		t.Fatal("CurrentItem() expected none after reset")
	}
	if !q.Offer([]domain.Applicant{mustApplicant("z", domain.StateApplied, 0)}, InitialOrder{}) {
		t.Fatal("Offer() expected push after reset to start a session")
	}
	current, _ := q.CurrentItem()
	if current.ID != "z" {
		t.Fatalf("CurrentItem() = %q, want z", current.ID)
	}
}

// TestApplyFilterAlwaysResetsCursor verifies the filter reset invariant for every filter.
func TestApplyFilterAlwaysResetsCursor(t *testing.T) {
	filters := []Filter{
		{},
		NewFilter("applied"),
		NewFilter("shortlisted"),
		NewFilter("offered"),
		NewFilter("applied", "shortlisted"),
		NewFilter("in_progress"),
	}
	for _, filter := range filters {
		q := NewQueueManager()
		q.StartSession(threeApplicants(), InitialOrder{})
		q.Advance()
		q.Advance()
		state := q.ApplyFilter(filter)
		if state.Cursor != 0 {
			t.Fatalf("ApplyFilter(%s) cursor = %d, want 0", filter, state.Cursor)
		}
	}
}

// TestApplyFilterPreservesOrder verifies filtered views are order-preserving sub-sequences.
func TestApplyFilterPreservesOrder(t *testing.T) {
	q := NewQueueManager()
	items := append(threeApplicants(), mustApplicant("d", domain.StateApplied, 3))
	q.StartSession(items, InitialOrder{FocusID: "c"})
	q.ApplyFilter(NewFilter("applied"))
	if got := ids(q.Items()); !slices.Equal(got, []string{"d", "a", "b"}) {
		t.Fatalf("Items() = %v, want [d a b]", got)
	}
	q.ApplyFilter(Filter{})
	if got := ids(q.Items()); !slices.Equal(got, []string{"c", "d", "a", "b"}) {
		t.Fatalf("Items() after clearing = %v", got)
	}
}

// TestFilterMatchesStateOrTag verifies either attribute admits an item.
func TestFilterMatchesStateOrTag(t *testing.T) {
	item := mustApplicant("a", "callback", 0)
	item.StatusTag = domain.StatusInProgress
	if !NewFilter("callback").Allows(item) {
		t.Fatal("expected state match")
	}
	if !NewFilter(" IN_PROGRESS ").Allows(item) {
		t.Fatal("expected tag match")
	}
	if NewFilter("rejected").Allows(item) {
		t.Fatal("expected no match")
	}
	if got := NewFilter("applied", "", "callback").String(); got != "applied,callback" {
		t.Fatalf("String() = %q", got)
	}
}

// TestAdvanceExhaustionIsIdempotent verifies terminal exhaustion.
func TestAdvanceExhaustionIsIdempotent(t *testing.T) {
	q := NewQueueManager()
	q.StartSession(threeApplicants(), InitialOrder{})
	q.Advance()
	q.Advance()
	if q.Exhausted() {
		t.Fatal("Exhausted() true before the last advance")
	}
	next, ok := q.PeekNext()
	if ok {
		t.Fatalf("PeekNext() = %q on last item, want none", next.ID)
	}
	state := q.Advance()
	if !state.Exhausted || state.Cursor != 3 {
		t.Fatalf("Advance() = %#v, want exhausted at 3", state)
	}
	again := q.Advance()
	if again.Cursor != 3 || !again.Exhausted {
		t.Fatalf("second Advance() = %#v, want no-op", again)
	}
	if _, ok := q.CurrentItem(); ok {
		t.Fatal("CurrentItem() expected none when exhausted")
	}
}

// TestEmptyFilteredViewIsExhausted verifies an empty view is a normal terminal state.
func TestEmptyFilteredViewIsExhausted(t *testing.T) {
	q := NewQueueManager()
	q.StartSession(threeApplicants(), InitialOrder{})
	state := q.ApplyFilter(NewFilter("offered"))
	if !state.Exhausted || state.Len != 0 {
		t.Fatalf("ApplyFilter() = %#v, want exhausted empty view", state)
	}
	if _, ok := q.CurrentItem(); ok {
		t.Fatal("CurrentItem() expected none")
	}
}

// TestAdvanceIfRejectsStaleGeneration verifies advances after a reset are ignored.
func TestAdvanceIfRejectsStaleGeneration(t *testing.T) {
	q := NewQueueManager()
	gen := q.StartSession(threeApplicants(), InitialOrder{})
	if _, err := q.AdvanceIf(gen, "a"); err != nil {
		t.Fatalf("AdvanceIf() error = %v", err)
	}
	q.ResetSession()
	q.StartSession(threeApplicants(), InitialOrder{})
	state, err := q.AdvanceIf(gen, "b")
	if !errors.Is(err, ErrSessionStale) {
		t.Fatalf("expected ErrSessionStale, got %v", err)
	}
	if state.Cursor != 0 {
		t.Fatalf("stale advance moved cursor to %d", state.Cursor)
	}
}

// TestAdvanceIfRequiresCommittedItemUnderCursor verifies a filter change mid-commit never skips an item.
func TestAdvanceIfRequiresCommittedItemUnderCursor(t *testing.T) {
	q := NewQueueManager()
	gen := q.StartSession(threeApplicants(), InitialOrder{})
	q.ApplyFilter(NewFilter("shortlisted"))
	state, err := q.AdvanceIf(gen, "a")
	if !errors.Is(err, ErrSessionStale) {
		t.Fatalf("expected ErrSessionStale, got %v", err)
	}
	if state.Cursor != 0 {
		t.Fatalf("cursor = %d, want 0", state.Cursor)
	}
	if current, ok := q.CurrentItem(); !ok || current.ID != "c" {
		t.Fatalf("CurrentItem() = %#v, %v; want c", current, ok)
	}

	state, err = q.AdvanceIf(gen, "c")
	if err != nil || !state.Exhausted {
		t.Fatalf("AdvanceIf(c) = %#v, %v; want exhausted", state, err)
	}
}
