package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ProcessState is the pipeline stage an applicant currently sits in.
type ProcessState string

// Built-in process states. Session stages configured per role are also valid states.
const (
	StateApplied     ProcessState = "applied"
	StateShortlisted ProcessState = "shortlisted"
	StateOffered     ProcessState = "offered"
	StateRejected    ProcessState = "rejected"
)

// Status tags written alongside a transition.
const (
	StatusInProgress  = "in_progress"
	StatusShortlisted = "shortlisted"
	StatusOffered     = "offered"
	StatusRejected    = "rejected"
)

// Reserved action keys. Any other key names a session stage.
const (
	ActionReject    = "reject"
	ActionShortlist = "shortlist"
	ActionOffer     = "offer"
)

// Direction identifies which horizontal side of the card a zone lives on.
type Direction int

// Direction values.
const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

// String returns a short label for logs.
func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "none"
	}
}

// Stage is one configured intermediate session stage (audition, callback, interview, ...).
type Stage struct {
	Key   string
	Label string
}

// ActionZone is one committable action reachable by a drag.
type ActionZone struct {
	Key       string
	Label     string
	Direction Direction
}

// ZoneSet holds the zones available for one item: the fixed left reject zone and the ordered right zones.
type ZoneSet struct {
	Reject    ActionZone
	CanReject bool
	Right     []ActionZone
}

// Find returns the zone with the given key.
func (z ZoneSet) Find(key string) (ActionZone, bool) {
	key = normalizeKey(key)
	if z.CanReject && key == z.Reject.Key {
		return z.Reject, true
	}
	for _, zone := range z.Right {
		if zone.Key == key {
			return zone, true
		}
	}
	return ActionZone{}, false
}

// Keys lists every available key, reject first.
func (z ZoneSet) Keys() []string {
	out := make([]string, 0, len(z.Right)+1)
	if z.CanReject {
		out = append(out, z.Reject.Key)
	}
	for _, zone := range z.Right {
		out = append(out, zone.Key)
	}
	return out
}

// Transition is the persisted stage/status pair an action moves an applicant to.
type Transition struct {
	ProcessState ProcessState
	StatusTag    string
}

// Policy configures which states are terminal, which forbid rejection, and where applicants start.
type Policy struct {
	InitialState        ProcessState
	TerminalStates      []ProcessState
	NonRejectableStates []ProcessState
	OfferEnabled        bool
}

// DefaultPolicy returns the stock review policy.
func DefaultPolicy() Policy {
	return Policy{
		InitialState:        StateApplied,
		TerminalStates:      []ProcessState{StateShortlisted, StateOffered},
		NonRejectableStates: []ProcessState{StateOffered, StateRejected},
	}
}

// Resolver derives committable actions from process state for one role's configured stages.
type Resolver struct {
	Policy Policy
	Stages []Stage
}

// NewResolver constructs a resolver, normalizing stage keys and dropping blanks and duplicates.
func NewResolver(policy Policy, stages []Stage) Resolver {
	if NormalizeProcessState(policy.InitialState) == "" {
		policy.InitialState = StateApplied
	}
	out := make([]Stage, 0, len(stages))
	seen := map[string]struct{}{}
	for _, stage := range stages {
		key := normalizeKey(stage.Key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		label := strings.TrimSpace(stage.Label)
		if label == "" {
			label = defaultLabel(key)
		}
		out = append(out, Stage{Key: key, Label: label})
	}
	return Resolver{Policy: policy, Stages: out}
}

// StagesFromKeys builds stages with generated labels.
func StagesFromKeys(keys ...string) []Stage {
	out := make([]Stage, 0, len(keys))
	for _, key := range keys {
		out = append(out, Stage{Key: key})
	}
	return out
}

// Resolve returns the ordered right-direction zones for a process state.
func (r Resolver) Resolve(state ProcessState) []ActionZone {
	state = r.normalizeState(state)
	if slices.Contains(r.Policy.TerminalStates, state) {
		if r.Policy.OfferEnabled && state == StateShortlisted {
			return []ActionZone{offerZone()}
		}
		return []ActionZone{}
	}
	if state == r.Policy.InitialState {
		return r.forwardFrom(0)
	}
	for idx, stage := range r.Stages {
		if ProcessState(stage.Key) == state {
			return r.forwardFrom(idx + 1)
		}
	}
	// Unknown stages (renamed or removed from config) get no forward actions.
	return []ActionZone{}
}

// CanReject reports whether the left reject zone is available for a state.
func (r Resolver) CanReject(state ProcessState) bool {
	return !slices.Contains(r.Policy.NonRejectableStates, r.normalizeState(state))
}

// Zones returns the full zone set for a state.
func (r Resolver) Zones(state ProcessState) ZoneSet {
	return ZoneSet{
		Reject:    rejectZone(),
		CanReject: r.CanReject(state),
		Right:     r.Resolve(state),
	}
}

// Transition maps an action key onto the stage and status it writes.
func (r Resolver) Transition(actionKey string) (Transition, error) {
	key := normalizeKey(actionKey)
	switch key {
	case ActionReject:
		return Transition{ProcessState: StateRejected, StatusTag: StatusRejected}, nil
	case ActionShortlist:
		return Transition{ProcessState: StateShortlisted, StatusTag: StatusShortlisted}, nil
	case ActionOffer:
		return Transition{ProcessState: StateOffered, StatusTag: StatusOffered}, nil
	}
	for _, stage := range r.Stages {
		if stage.Key == key {
			return Transition{ProcessState: ProcessState(stage.Key), StatusTag: StatusInProgress}, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionKey)
}

// Allowed checks that an action is currently committable from a state.
func (r Resolver) Allowed(state ProcessState, actionKey string) error {
	zones := r.Zones(state)
	if _, ok := zones.Find(actionKey); !ok {
		return fmt.Errorf("%w: %q from %q", ErrActionNotAllowed, actionKey, r.normalizeState(state))
	}
	return nil
}

// forwardFrom returns stages[from:] followed by the trailing shortlist zone.
func (r Resolver) forwardFrom(from int) []ActionZone {
	from = min(max(from, 0), len(r.Stages))
	out := make([]ActionZone, 0, len(r.Stages)-from+1)
	for _, stage := range r.Stages[from:] {
		out = append(out, ActionZone{Key: stage.Key, Label: stage.Label, Direction: DirectionRight})
	}
	return append(out, shortlistZone())
}

// normalizeState folds blank states onto the initial state.
func (r Resolver) normalizeState(state ProcessState) ProcessState {
	state = NormalizeProcessState(state)
	if state == "" {
		return r.Policy.InitialState
	}
	return state
}

// NormalizeProcessState trims and lowercases a state.
func NormalizeProcessState(state ProcessState) ProcessState {
	return ProcessState(normalizeKey(string(state)))
}

// IsReservedKey reports whether a key is a built-in action or state name that stages may not reuse.
func IsReservedKey(key string) bool {
	switch normalizeKey(key) {
	case ActionReject, ActionShortlist, ActionOffer,
		string(StateApplied), string(StateShortlisted), string(StateOffered), string(StateRejected):
		return true
	default:
		return false
	}
}

func rejectZone() ActionZone {
	return ActionZone{Key: ActionReject, Label: "Reject", Direction: DirectionLeft}
}

func shortlistZone() ActionZone {
	return ActionZone{Key: ActionShortlist, Label: "Shortlist", Direction: DirectionRight}
}

func offerZone() ActionZone {
	return ActionZone{Key: ActionOffer, Label: "Send offer", Direction: DirectionRight}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// defaultLabel turns a stage key such as "second_callback" into "Second callback".
func defaultLabel(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(words) == 0 {
		return key
	}
	label := strings.Join(words, " ")
	return strings.ToUpper(label[:1]) + label[1:]
}
