package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/domain"
)

// Default pointer units per terminal cell.
const (
	defaultCellWidth  = 8
	defaultCellHeight = 16
)

// Model is the review screen. It drives one app.Engine from keyboard, mouse, and focus input.
type Model struct {
	engine *app.Engine
	events <-chan app.Event
	cancel func()

	ready  bool
	width  int
	height int
	err    error
	status string

	help help.Model
	keys keyMap

	filters   []FilterPreset
	filterIdx int

	cellWidth  float64
	cellHeight float64
	drag       *dragState
	feedback   app.Feedback
	now        func() time.Time

	watchPath  string
	invalidate func(string)
	copyText   func(string) error

	notes *notesRenderer
}

// dragState tracks one in-progress mouse drag in cell coordinates.
type dragState struct {
	startX   int
	startY   int
	velocity app.VelocityTracker
}

// loadedMsg reports a Load attempt.
type loadedMsg struct {
	started bool
	err     error
}

// engineEventMsg carries one engine event into the update loop.
type engineEventMsg struct {
	event app.Event
}

// commitDoneMsg carries a finished commit job.
type commitDoneMsg struct {
	outcome app.CommitOutcome
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	id  string
	err error
}

// NewModel constructs the review screen over an engine.
func NewModel(engine *app.Engine, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		engine:     engine,
		status:     "loading...",
		help:       h,
		keys:       newKeyMap(),
		filters:    []FilterPreset{{Name: "all"}},
		cellWidth:  defaultCellWidth,
		cellHeight: defaultCellHeight,
		now:        time.Now,
		copyText:   clipboard.WriteAll,
		notes:      &notesRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if engine != nil {
		m.events, m.cancel = engine.Events()
		m.filterIdx = m.presetIndex(engine.Filter())
	}
	return m
}

// Init starts the first load, the event listener, and the store watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.listenCmd(), watchCmd(m.watchPath))
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.engine.SetScreen(float64(msg.Width)*m.cellWidth, float64(msg.Height)*m.cellHeight)
		return m, nil

	case tea.FocusMsg:
		m.engine.ResetSession()
		m.status = "refreshing..."
		return m, m.loadCmd()

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		if msg.started {
			m.status = "ready"
		}
		return m, nil

	case engineEventMsg:
		m.applyEvent(msg.event)
		return m, m.listenCmd()

	case commitDoneMsg:
		out := msg.outcome
		switch {
		case out.Err != nil:
			m.status = "save failed: " + out.Err.Error()
		case out.Stale:
			m.status = "saved without advancing"
		default:
			m.status = fmt.Sprintf("%s → %s", out.Request.Item.DisplayName(), out.Request.Zone.Label)
		}
		return m, nil

	case storeChangedMsg:
		if m.invalidate != nil {
			m.invalidate(m.engine.RoleID())
		}
		return m, tea.Batch(m.loadCmd(), watchCmd(m.watchPath))

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied " + msg.id
		}
		return m, nil

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey maps key presses onto engine operations.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reject):
		return m.commitZone(-1)
	case key.Matches(msg, m.keys.advance):
		return m.commitZone(0)
	case key.Matches(msg, m.keys.cycleFilter):
		if m.engine.Busy() {
			m.status = "still saving..."
			return m, nil
		}
		if len(m.filters) < 2 {
			m.status = "no filter presets configured"
			return m, nil
		}
		m.filterIdx = (m.filterIdx + 1) % len(m.filters)
		preset := m.filters[m.filterIdx]
		m.engine.ApplyFilter(app.NewFilter(preset.Values...))
		m.status = "filter: " + preset.Name
		return m, nil
	case key.Matches(msg, m.keys.reset):
		m.engine.ResetSession()
		m.status = "refreshing..."
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.copyID):
		item, ok := m.engine.CurrentItem()
		if !ok {
			return m, nil
		}
		copyText := m.copyText
		return m, func() tea.Msg {
			return copiedMsg{id: item.ID, err: copyText(item.ID)}
		}
	}
	if idx, ok := m.keys.zoneIndex(msg); ok {
		return m.commitZone(idx)
	}
	return m, nil
}

// commitZone commits the indexed right zone, or reject for -1.
func (m Model) commitZone(idx int) (tea.Model, tea.Cmd) {
	if m.drag != nil {
		return m, nil
	}
	job, err := m.engine.CommitZoneAt(context.Background(), idx)
	if err != nil {
		m.status = commitErrorStatus(err)
		return m, nil
	}
	return m, runCommit(job)
}

// handleMouseClick begins a drag on the Top card.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.drag != nil {
		return m, nil
	}
	if !m.engine.DragStart() {
		return m, nil
	}
	m.drag = &dragState{startX: msg.X, startY: msg.Y}
	m.drag.velocity.Add(m.now(), float64(msg.X)*m.cellWidth)
	m.feedback = m.engine.DragUpdate(m.sample(msg.X, msg.Y))
	return m, nil
}

// handleMouseMotion feeds one drag sample to the classifier.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.drag == nil {
		return m, nil
	}
	m.drag.velocity.Add(m.now(), float64(msg.X)*m.cellWidth)
	m.feedback = m.engine.DragUpdate(m.sample(msg.X, msg.Y))
	return m, nil
}

// handleMouseRelease ends the drag and starts a commit when the gesture qualifies.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.drag == nil {
		return m, nil
	}
	m.drag.velocity.Add(m.now(), float64(msg.X)*m.cellWidth)
	m.engine.DragUpdate(m.sample(msg.X, msg.Y))
	out, job := m.engine.DragEnd(context.Background())
	m.drag = nil
	m.feedback = app.Feedback{}
	if job == nil {
		if out.Committed {
			m.status = "busy"
		}
		return m, nil
	}
	return m, runCommit(job)
}

// sample converts cell coordinates into classifier units.
func (m Model) sample(x, y int) app.DragSample {
	return app.DragSample{
		DX:        float64(x-m.drag.startX) * m.cellWidth,
		DY:        float64(y-m.drag.startY) * m.cellHeight,
		PointerY:  (float64(y) + 0.5) * m.cellHeight,
		VelocityX: m.drag.velocity.Velocity(),
	}
}

// applyEvent updates status text from engine events.
func (m *Model) applyEvent(event app.Event) {
	switch ev := event.(type) {
	case app.SessionStartedEvent:
		m.status = fmt.Sprintf("%d applicants", ev.Len)
	case app.CursorResetEvent:
		m.status = fmt.Sprintf("filter %s: %d applicants", ev.Filter.String(), ev.Len)
	case app.CommitStartedEvent:
		m.status = "saving " + ev.Zone.Label + "..."
	case app.CommitFailedEvent:
		m.status = "save failed: " + ev.Err.Error()
	case app.ExhaustedEvent:
		m.status = "queue complete"
	case app.SessionResetEvent, app.CursorAdvancedEvent, app.SlotsChangedEvent:
	}
}

// presetIndex finds the preset matching the engine's current filter.
func (m Model) presetIndex(filter app.Filter) int {
	want := filter.String()
	for idx, preset := range m.filters {
		if app.NewFilter(preset.Values...).String() == want {
			return idx
		}
	}
	return 0
}

// loadCmd fetches applicants; the engine ignores the data while a session is active.
func (m Model) loadCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		started, err := engine.Load(context.Background())
		return loadedMsg{started: started, err: err}
	}
}

// listenCmd waits for the next engine event.
func (m Model) listenCmd() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}

// runCommit runs a commit job off the update loop.
func runCommit(job func() app.CommitOutcome) tea.Cmd {
	if job == nil {
		return nil
	}
	return func() tea.Msg {
		return commitDoneMsg{outcome: job()}
	}
}

// commitErrorStatus renders a refused commit for the status line.
func commitErrorStatus(err error) string {
	switch {
	case errors.Is(err, app.ErrCommitBusy):
		return "still saving..."
	case errors.Is(err, app.ErrNoSession):
		return "nothing to review"
	case errors.Is(err, domain.ErrActionNotAllowed):
		return "no such action here"
	default:
		return err.Error()
	}
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	return min(max(v, minV), maxV)
}
