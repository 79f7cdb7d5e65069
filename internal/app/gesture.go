package app

import (
	"fmt"
	"math"
	"time"

	"github.com/evanschultz/shortlist/internal/domain"
)

// GestureConfig holds the classifier thresholds in pointer units.
type GestureConfig struct {
	ActivationThreshold float64
	ReleaseThreshold    float64
	VelocityThreshold   float64
	HighlightThreshold  float64
	NeighborDim         float64
	ScreenWidth         float64
	ScreenHeight        float64
	Margin              float64
}

// DefaultGestureConfig returns the stock thresholds for a 390x844 screen.
func DefaultGestureConfig() GestureConfig {
	return GestureConfig{
		ActivationThreshold: 30,
		ReleaseThreshold:    100,
		VelocityThreshold:   500,
		HighlightThreshold:  0.5,
		NeighborDim:         0.4,
		ScreenWidth:         390,
		ScreenHeight:        844,
		Margin:              20,
	}
}

// MaxDragDistance is the displacement at which commit intensity saturates.
func (c GestureConfig) MaxDragDistance() float64 {
	return math.Max(c.ScreenWidth-2*c.Margin, c.ActivationThreshold+1)
}

// GesturePhase is the classifier state.
type GesturePhase int

// GesturePhase values.
const (
	PhaseIdle GesturePhase = iota
	PhaseDragging
	PhaseCommitting
	PhaseCancelled
)

// String returns the phase name.
func (p GesturePhase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseCommitting:
		return "committing"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// DragSample is one pointer update relative to the drag origin.
type DragSample struct {
	DX        float64
	DY        float64
	PointerY  float64
	VelocityX float64
}

// Feedback is what the host renders on every classifier tick.
type Feedback struct {
	DX         float64
	DY         float64
	ActiveZone domain.ActionZone
	HasActive  bool
	Intensity  map[string]float64
}

// ActiveIntensity returns the intensity of the active zone, or zero.
func (f Feedback) ActiveIntensity() float64 {
	if !f.HasActive {
		return 0
	}
	return f.Intensity[f.ActiveZone.Key]
}

// MaxIntensity returns the strongest intensity across zones.
func (f Feedback) MaxIntensity() float64 {
	out := 0.0
	for _, v := range f.Intensity {
		out = math.Max(out, v)
	}
	return out
}

// Outcome is the classifier's decision on release.
type Outcome struct {
	Committed bool
	Zone      domain.ActionZone
	Feedback  Feedback
}

// GestureSession is the transient state of one drag.
type GestureSession struct {
	DX        float64
	DY        float64
	PointerY  float64
	VelocityX float64
	feedback  Feedback
}

// Classifier turns a drag stream into a discrete zone and a commit/cancel decision.
// It never blocks and is driven entirely by the interaction loop.
type Classifier struct {
	cfg     GestureConfig
	zones   domain.ZoneSet
	phase   GesturePhase
	session *GestureSession
}

// NewClassifier constructs an idle classifier.
func NewClassifier(cfg GestureConfig) *Classifier {
	return &Classifier{cfg: sanitizeGestureConfig(cfg)}
}

// Config returns the active thresholds.
func (c *Classifier) Config() GestureConfig {
	return c.cfg
}

// SetZones replaces the zones for the current item.
func (c *Classifier) SetZones(zones domain.ZoneSet) {
	c.zones = zones
}

// Zones returns the zones for the current item.
func (c *Classifier) Zones() domain.ZoneSet {
	return c.zones
}

// SetScreen updates the screen band used for partitioning and saturation.
func (c *Classifier) SetScreen(width, height float64) {
	if width > 0 {
		c.cfg.ScreenWidth = width
	}
	if height > 0 {
		c.cfg.ScreenHeight = height
	}
}

// Phase returns the current state.
func (c *Classifier) Phase() GesturePhase {
	return c.phase
}

// Session returns the active drag session when dragging.
func (c *Classifier) Session() (GestureSession, bool) {
	if c.session == nil {
		return GestureSession{}, false
	}
	return *c.session, true
}

// Begin starts a drag. It reports false when a drag is already in progress.
func (c *Classifier) Begin() bool {
	if c.phase == PhaseDragging {
		return false
	}
	c.phase = PhaseDragging
	c.session = &GestureSession{feedback: c.idleFeedback(0, 0)}
	return true
}

// Update classifies one drag sample.
func (c *Classifier) Update(sample DragSample) Feedback {
	if c.phase != PhaseDragging || c.session == nil {
		return c.idleFeedback(0, 0)
	}
	c.session.DX = sample.DX
	c.session.DY = sample.DY
	c.session.PointerY = sample.PointerY
	c.session.VelocityX = sample.VelocityX
	c.session.feedback = c.classify(sample)
	return c.session.feedback
}

// End finishes the drag and decides between commit and cancel.
func (c *Classifier) End() Outcome {
	if c.phase != PhaseDragging || c.session == nil {
		return Outcome{Feedback: c.idleFeedback(0, 0)}
	}
	s := c.session
	c.session = nil
	fb := s.feedback
	released := math.Abs(s.DX) > c.cfg.ReleaseThreshold || math.Abs(s.VelocityX) > c.cfg.VelocityThreshold
	if released && fb.HasActive && fb.ActiveIntensity() > c.cfg.HighlightThreshold {
		c.phase = PhaseCommitting
		return Outcome{Committed: true, Zone: fb.ActiveZone, Feedback: fb}
	}
	c.phase = PhaseCancelled
	return Outcome{Feedback: c.idleFeedback(0, 0)}
}

// MarkCommitting enters Committing without a drag, for commits issued by key.
func (c *Classifier) MarkCommitting() {
	c.session = nil
	c.phase = PhaseCommitting
}

// Reset returns the classifier to idle and drops any session.
func (c *Classifier) Reset() {
	c.phase = PhaseIdle
	c.session = nil
}

func (c *Classifier) classify(sample DragSample) Feedback {
	absDX := math.Abs(sample.DX)
	if absDX <= c.cfg.ActivationThreshold {
		return c.idleFeedback(sample.DX, sample.DY)
	}
	intensity := c.intensity(absDX)
	fb := Feedback{DX: sample.DX, DY: sample.DY, Intensity: map[string]float64{}}
	if sample.DX < 0 {
		if c.zones.CanReject {
			fb.ActiveZone, fb.HasActive = c.zones.Reject, true
		}
	} else if n := len(c.zones.Right); n > 0 {
		idx := PartitionIndex(sample.PointerY, c.cfg.ScreenHeight, n)
		fb.ActiveZone, fb.HasActive = c.zones.Right[idx], true
	}
	for _, key := range c.zones.Keys() {
		if fb.HasActive && key == fb.ActiveZone.Key {
			fb.Intensity[key] = intensity
			continue
		}
		fb.Intensity[key] = c.cfg.NeighborDim * intensity
	}
	return fb
}

// intensity ramps linearly from the activation threshold to the max drag distance.
func (c *Classifier) intensity(absDX float64) float64 {
	span := c.cfg.MaxDragDistance() - c.cfg.ActivationThreshold
	if span <= 0 {
		return 1
	}
	return math.Min(math.Max((absDX-c.cfg.ActivationThreshold)/span, 0), 1)
}

func (c *Classifier) idleFeedback(dx, dy float64) Feedback {
	fb := Feedback{DX: dx, DY: dy, Intensity: map[string]float64{}}
	for _, key := range c.zones.Keys() {
		fb.Intensity[key] = 0
	}
	return fb
}

// PartitionIndex maps a vertical position onto one of n equal-height bands.
func PartitionIndex(y, height float64, n int) int {
	n = max(n, 1)
	if height <= 0 || math.IsNaN(y) {
		return 0
	}
	band := height / float64(n)
	idx := clampInt(int(math.Floor(y/band)), 0, n-1)
	if idx < 0 || idx >= n {
		panic(fmt.Errorf("%w: index %d outside [0,%d)", ErrInvalidZone, idx, n))
	}
	return idx
}

func sanitizeGestureConfig(cfg GestureConfig) GestureConfig {
	def := DefaultGestureConfig()
	if cfg.ActivationThreshold <= 0 {
		cfg.ActivationThreshold = def.ActivationThreshold
	}
	if cfg.ReleaseThreshold <= 0 {
		cfg.ReleaseThreshold = def.ReleaseThreshold
	}
	if cfg.VelocityThreshold <= 0 {
		cfg.VelocityThreshold = def.VelocityThreshold
	}
	if cfg.HighlightThreshold <= 0 || cfg.HighlightThreshold >= 1 {
		cfg.HighlightThreshold = def.HighlightThreshold
	}
	if cfg.NeighborDim < 0 || cfg.NeighborDim > 1 {
		cfg.NeighborDim = def.NeighborDim
	}
	if cfg.ScreenWidth <= 0 {
		cfg.ScreenWidth = def.ScreenWidth
	}
	if cfg.ScreenHeight <= 0 {
		cfg.ScreenHeight = def.ScreenHeight
	}
	if cfg.Margin < 0 {
		cfg.Margin = def.Margin
	}
	return cfg
}

// VelocityTracker estimates horizontal velocity from timestamped pointer positions.
type VelocityTracker struct {
	Window  time.Duration
	samples []velocitySample
}

type velocitySample struct {
	at time.Time
	x  float64
}

// Reset drops all samples.
func (v *VelocityTracker) Reset() {
	v.samples = v.samples[:0]
}

// Add records a position.
func (v *VelocityTracker) Add(at time.Time, x float64) {
	v.samples = append(v.samples, velocitySample{at: at, x: x})
	window := v.window()
	cut := 0
	for cut < len(v.samples)-2 && at.Sub(v.samples[cut].at) > window {
		cut++
	}
	if cut > 0 {
		v.samples = append(v.samples[:0], v.samples[cut:]...)
	}
}

// Velocity returns units per second across the retained window.
func (v *VelocityTracker) Velocity() float64 {
	if len(v.samples) < 2 {
		return 0
	}
	first, last := v.samples[0], v.samples[len(v.samples)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return (last.x - first.x) / elapsed
}

func (v *VelocityTracker) window() time.Duration {
	if v.Window <= 0 {
		return 100 * time.Millisecond
	}
	return v.Window
}
