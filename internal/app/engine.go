package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/shortlist/internal/domain"
)

// EngineConfig holds configuration for one review screen.
type EngineConfig struct {
	RoleID       string
	Resolver     domain.Resolver
	Gesture      GestureConfig
	GraceWindow  time.Duration
	SlotStrategy SlotStrategy
	Filter       Filter
	InitialOrder InitialOrder
}

// EngineOption customizes an engine.
type EngineOption func(*Engine)

// WithEngineLogger attaches a logger to the engine and its coordinator.
func WithEngineLogger(log Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSleeper replaces the grace-window wait.
func WithSleeper(sleep Sleeper) EngineOption {
	return func(e *Engine) {
		e.sleeper = sleep
	}
}

// WithEmitter shares an existing event emitter.
func WithEmitter(emitter *Emitter) EngineOption {
	return func(e *Engine) {
		if emitter != nil {
			e.events = emitter
		}
	}
}

// EngineView is a point-in-time snapshot for rendering.
type EngineView struct {
	RoleID string
	Queue  QueueState
	Top    Slot
	Back   Slot
	Zones  domain.ZoneSet
	Phase  GesturePhase
	Busy   bool
}

// Engine composes the queue, classifier, commit coordinator and slot allocator for one screen.
type Engine struct {
	mu         sync.Mutex
	roleID     string
	resolver   domain.Resolver
	order      InitialOrder
	filter     Filter
	source     DataSource
	queue      *QueueManager
	classifier *Classifier
	slots      *SlotAllocator
	coord      *Coordinator
	events     *Emitter
	log        Logger
	sleeper    Sleeper
}

// NewEngine wires an engine over its external collaborators.
func NewEngine(cfg EngineConfig, source DataSource, exec MutationExecutor, invalidator CacheInvalidator, opts ...EngineOption) *Engine {
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = DefaultGraceWindow
	}
	if cfg.Resolver.Policy.InitialState == "" {
		cfg.Resolver = domain.NewResolver(domain.DefaultPolicy(), cfg.Resolver.Stages)
	}
	e := &Engine{
		roleID:     strings.TrimSpace(cfg.RoleID),
		resolver:   cfg.Resolver,
		order:      cfg.InitialOrder,
		filter:     cfg.Filter,
		source:     source,
		queue:      NewQueueManager(),
		classifier: NewClassifier(cfg.Gesture),
		slots:      NewSlotAllocator(cfg.SlotStrategy),
		events:     NewEmitter(64),
		log:        nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.coord = NewCoordinator(exec, invalidator, e.advance, cfg.GraceWindow)
	e.coord.SetLogger(e.log)
	e.coord.SetSleeper(e.sleeper)
	return e
}

// Events subscribes to the engine's event stream.
func (e *Engine) Events() (<-chan Event, func()) {
	return e.events.Subscribe()
}

// Close shuts down the event stream.
func (e *Engine) Close() {
	e.events.Close()
}

// RoleID returns the role under review.
func (e *Engine) RoleID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roleID
}

// Resolver returns the action resolver.
func (e *Engine) Resolver() domain.Resolver {
	return e.resolver
}

// Load fetches the role's applicants and starts a session when none is active.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	if e.source == nil {
		return false, ErrNoSession
	}
	items, err := e.source.ListApplicants(ctx, e.RoleID())
	if err != nil {
		return false, err
	}
	return e.Offer(items), nil
}

// Offer hands newly arrived data to the queue. It is ignored while a session is active.
func (e *Engine) Offer(items []domain.Applicant) bool {
	e.mu.Lock()
	if !e.queue.Offer(items, e.order) {
		e.mu.Unlock()
		e.log.Debug("data push ignored; session active", "role_id", e.roleID, "items", len(items))
		return false
	}
	state := e.queue.ApplyFilter(e.filter)
	e.reloadLocked()
	events := []Event{
		SessionStartedEvent{RoleID: e.roleID, Generation: state.Generation, Total: state.Total, Len: state.Len},
		e.slotsEventLocked(),
	}
	if state.Exhausted {
		events = append(events, ExhaustedEvent{Generation: state.Generation, Len: state.Len})
	}
	e.mu.Unlock()
	e.log.Info("review session started", "role_id", e.roleID, "items", state.Total, "visible", state.Len)
	e.events.Publish(events...)
	return true
}

// SetInitialOrder sets the focus used by the next session start.
func (e *Engine) SetInitialOrder(order InitialOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order = order
}

// ApplyFilter replaces the filter and resets the cursor to zero.
func (e *Engine) ApplyFilter(filter Filter) QueueState {
	e.mu.Lock()
	e.filter = filter
	state := e.queue.ApplyFilter(filter)
	e.classifier.Reset()
	e.reloadLocked()
	events := []Event{
		CursorResetEvent{Generation: state.Generation, Filter: filter, Len: state.Len},
		e.slotsEventLocked(),
	}
	if state.Exhausted {
		events = append(events, ExhaustedEvent{Generation: state.Generation, Len: state.Len})
	}
	e.mu.Unlock()
	e.events.Publish(events...)
	return state
}

// Filter returns the active filter.
func (e *Engine) Filter() Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// ResetSession discards the snapshot; the next Load or Offer starts a fresh session.
func (e *Engine) ResetSession() {
	e.mu.Lock()
	gen := e.queue.ResetSession()
	e.classifier.Reset()
	e.slots.Clear()
	role := e.roleID
	e.mu.Unlock()
	e.log.Debug("review session reset", "role_id", role, "generation", gen)
	e.events.Publish(SessionResetEvent{RoleID: role, Generation: gen})
}

// SetRole switches the role under review and resets the session.
func (e *Engine) SetRole(roleID string) {
	e.mu.Lock()
	e.roleID = strings.TrimSpace(roleID)
	e.mu.Unlock()
	e.ResetSession()
}

// SetScreen updates the classifier's screen band.
func (e *Engine) SetScreen(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.classifier.SetScreen(width, height)
}

// GestureConfig returns the active classifier thresholds.
func (e *Engine) GestureConfig() GestureConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.Config()
}

// View returns a rendering snapshot.
func (e *Engine) View() EngineView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineView{
		RoleID: e.roleID,
		Queue:  e.queue.State(),
		Top:    e.slots.Top(),
		Back:   e.slots.Back(),
		Zones:  e.classifier.Zones(),
		Phase:  e.classifier.Phase(),
		Busy:   e.coord.Busy(),
	}
}

// CurrentItem returns the item under the cursor.
func (e *Engine) CurrentItem() (domain.Applicant, bool) {
	return e.queue.CurrentItem()
}

// PeekNext returns the item after the cursor.
func (e *Engine) PeekNext() (domain.Applicant, bool) {
	return e.queue.PeekNext()
}

// Items returns the filtered view.
func (e *Engine) Items() []domain.Applicant {
	return e.queue.Items()
}

// DragStart begins a gesture on the Top card. It is refused while a commit is in flight or nothing is on top.
func (e *Engine) DragStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.coord.Busy() {
		return false
	}
	if _, ok := e.queue.CurrentItem(); !ok {
		return false
	}
	return e.classifier.Begin()
}

// DragUpdate classifies one pointer sample.
func (e *Engine) DragUpdate(sample DragSample) Feedback {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.Update(sample)
}

// DragEnd releases the gesture. When it commits, the returned job must be run off the interaction loop.
func (e *Engine) DragEnd(ctx context.Context) (Outcome, func() CommitOutcome) {
	e.mu.Lock()
	out := e.classifier.End()
	if !out.Committed {
		e.classifier.Reset()
		e.mu.Unlock()
		return out, nil
	}
	job, started, err := e.commitLocked(ctx, out.Zone)
	if err != nil || job == nil {
		e.classifier.Reset()
		out.Committed = false
	}
	e.mu.Unlock()
	if started != nil {
		e.events.Publish(started)
	}
	return out, job
}

// CommitKey commits an action for the Top item without a drag, used by keyboard and automation.
func (e *Engine) CommitKey(ctx context.Context, actionKey string) (func() CommitOutcome, error) {
	e.mu.Lock()
	if e.classifier.Phase() == PhaseDragging {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: drag in progress", ErrCommitBusy)
	}
	zone, ok := e.classifier.Zones().Find(actionKey)
	if !ok {
		item, _ := e.queue.CurrentItem()
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q from %q", domain.ErrActionNotAllowed, actionKey, item.ProcessState)
	}
	job, started, err := e.commitLocked(ctx, zone)
	if job != nil {
		e.classifier.MarkCommitting()
	}
	e.mu.Unlock()
	if started != nil {
		e.events.Publish(started)
	}
	return job, err
}

// CommitZoneAt commits the i-th right zone, or reject for index -1.
func (e *Engine) CommitZoneAt(ctx context.Context, index int) (func() CommitOutcome, error) {
	zones := e.View().Zones
	switch {
	case index < 0:
		return e.CommitKey(ctx, domain.ActionReject)
	case index < len(zones.Right):
		return e.CommitKey(ctx, zones.Right[index].Key)
	default:
		return nil, fmt.Errorf("%w: zone %d of %d", domain.ErrActionNotAllowed, index+1, len(zones.Right))
	}
}

// Busy reports whether a commit is in flight.
func (e *Engine) Busy() bool {
	return e.coord.Busy()
}

func (e *Engine) commitLocked(ctx context.Context, zone domain.ActionZone) (func() CommitOutcome, Event, error) {
	item, ok := e.queue.CurrentItem()
	if !ok {
		return nil, nil, ErrNoSession
	}
	transition, err := e.resolver.Transition(zone.Key)
	if err != nil {
		return nil, nil, err
	}
	req := CommitRequest{
		Generation: e.queue.Generation(),
		RoleID:     e.roleID,
		Item:       item,
		Zone:       zone,
		Transition: transition,
	}
	job, ok := e.coord.Commit(ctx, req)
	if !ok {
		return nil, nil, ErrCommitBusy
	}
	started := CommitStartedEvent{Generation: req.Generation, ApplicantID: item.ID, Zone: zone}
	return func() CommitOutcome {
		out := job()
		e.finish(out)
		return out
	}, started, nil
}

// finish publishes the outcome of a commit job and returns the classifier to idle.
func (e *Engine) finish(out CommitOutcome) {
	e.mu.Lock()
	if e.classifier.Phase() == PhaseCommitting {
		e.classifier.Reset()
	}
	var events []Event
	switch {
	case out.Err != nil:
		events = append(events, CommitFailedEvent{
			Generation:  out.Request.Generation,
			ApplicantID: out.Request.Item.ID,
			Zone:        out.Request.Zone,
			Err:         out.Err,
		})
	case out.Stale:
	default:
		events = append(events,
			CursorAdvancedEvent{Generation: out.Queue.Generation, Cursor: out.Queue.Cursor, Len: out.Queue.Len, Decision: out.Decision},
			e.slotsEventLocked(),
		)
		if out.Queue.Exhausted {
			events = append(events, ExhaustedEvent{Generation: out.Queue.Generation, Len: out.Queue.Len})
		}
	}
	e.mu.Unlock()
	e.events.Publish(events...)
}

// advance is the coordinator's success hook: move the cursor, then rotate the slots.
func (e *Engine) advance(generation uint64, itemID string) (QueueState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.queue.AdvanceIf(generation, itemID)
	if err != nil {
		return state, err
	}
	next, hasNext := e.queue.PeekNext()
	e.slots.Advance(next, hasNext)
	e.syncZonesLocked()
	return state, nil
}

func (e *Engine) reloadLocked() {
	top, hasTop := e.queue.CurrentItem()
	back, hasBack := e.queue.PeekNext()
	e.slots.Load(top, hasTop, back, hasBack)
	e.syncZonesLocked()
}

func (e *Engine) syncZonesLocked() {
	item, ok := e.queue.CurrentItem()
	if !ok {
		e.classifier.SetZones(domain.ZoneSet{})
		return
	}
	e.classifier.SetZones(e.resolver.Zones(item.ProcessState))
}

func (e *Engine) slotsEventLocked() SlotsChangedEvent {
	return SlotsChangedEvent{Top: e.slots.Top(), Back: e.slots.Back()}
}
