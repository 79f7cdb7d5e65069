package app

import (
	"fmt"
	"strings"

	"github.com/evanschultz/shortlist/internal/domain"
)

// SlotStrategy selects how the render window reacts to an advance.
type SlotStrategy string

// SlotStrategy values.
const (
	SlotDoubleBuffer SlotStrategy = "double_buffer"
	SlotRolling      SlotStrategy = "rolling"
)

// ParseSlotStrategy validates a configured strategy name. Blank means double_buffer.
func ParseSlotStrategy(raw string) (SlotStrategy, error) {
	switch SlotStrategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SlotDoubleBuffer:
		return SlotDoubleBuffer, nil
	case SlotRolling:
		return SlotRolling, nil
	default:
		return "", fmt.Errorf("unknown slot strategy %q", raw)
	}
}

// Slot is one render slot. Mounts counts component (re)creations; Loads counts content swaps.
type Slot struct {
	ID     int
	Item   domain.Applicant
	Filled bool
	Mounts int
	Loads  int
}

// SlotAllocator holds the two Top/Back render slots.
type SlotAllocator struct {
	strategy SlotStrategy
	slots    [2]Slot
	top      int
}

// NewSlotAllocator constructs an empty allocator.
func NewSlotAllocator(strategy SlotStrategy) *SlotAllocator {
	if strategy == "" {
		strategy = SlotDoubleBuffer
	}
	return &SlotAllocator{
		strategy: strategy,
		slots:    [2]Slot{{ID: 0}, {ID: 1}},
	}
}

// Strategy returns the configured strategy.
func (a *SlotAllocator) Strategy() SlotStrategy {
	return a.strategy
}

// Load mounts both slots fresh, used on session start and filter resets.
func (a *SlotAllocator) Load(top domain.Applicant, hasTop bool, back domain.Applicant, hasBack bool) {
	a.top = 0
	a.mount(0, top, hasTop)
	a.mount(1, back, hasBack)
}

// Clear empties both slots without counting a mount.
func (a *SlotAllocator) Clear() {
	for idx := range a.slots {
		a.slots[idx].Item = domain.Applicant{}
		a.slots[idx].Filled = false
	}
	a.top = 0
}

// Advance moves the window one item forward. next is the item that becomes the new Back.
func (a *SlotAllocator) Advance(next domain.Applicant, hasNext bool) {
	switch a.strategy {
	case SlotRolling:
		back := a.slots[1-a.top]
		a.mount(a.top, back.Item, back.Filled)
		a.mount(1-a.top, next, hasNext)
	default:
		old := a.top
		a.top = 1 - a.top
		a.slots[old].Item = next
		a.slots[old].Filled = hasNext
		a.slots[old].Loads++
	}
}

// Top returns the slot receiving gesture input.
func (a *SlotAllocator) Top() Slot {
	return a.slots[a.top]
}

// Back returns the non-interactive slot rendered underneath.
func (a *SlotAllocator) Back() Slot {
	return a.slots[1-a.top]
}

func (a *SlotAllocator) mount(idx int, item domain.Applicant, filled bool) {
	a.slots[idx].Item = item
	a.slots[idx].Filled = filled
	a.slots[idx].Mounts++
	a.slots[idx].Loads++
}

// BackScale is the cosmetic lift of the Back card while the Top card is dragged.
func BackScale(intensity float64) float64 {
	intensity = min(max(intensity, 0), 1)
	return 0.95 + 0.05*intensity
}
