package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/shortlist/internal/domain"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Review   ReviewConfig   `toml:"review"`
	Gesture  GestureConfig  `toml:"gesture"`
	Commit   CommitConfig   `toml:"commit"`
	Slots    SlotsConfig    `toml:"slots"`
	Server   ServerConfig   `toml:"server"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig configures the runtime log sinks.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// ReviewConfig describes the pipeline a role is reviewed through.
type ReviewConfig struct {
	Role                string         `toml:"role"`
	Stages              []StageConfig  `toml:"stages"`
	InitialState        string         `toml:"initial_state"`
	TerminalStates      []string       `toml:"terminal_states"`
	NonRejectableStates []string       `toml:"non_rejectable_states"`
	OfferEnabled        bool           `toml:"offer_enabled"`
	DefaultFilter       []string       `toml:"default_filter"`
	Filters             []FilterPreset `toml:"filters"`
}

type StageConfig struct {
	Key   string `toml:"key"`
	Label string `toml:"label"`
}

// FilterPreset is one named entry in the TUI filter cycle.
type FilterPreset struct {
	Name   string   `toml:"name"`
	Values []string `toml:"values"`
}

// GestureConfig holds classifier thresholds in pointer units and the terminal cell scale.
type GestureConfig struct {
	ActivationThreshold float64 `toml:"activation_threshold"`
	ReleaseThreshold    float64 `toml:"release_threshold"`
	VelocityThreshold   float64 `toml:"velocity_threshold"`
	HighlightThreshold  float64 `toml:"highlight_threshold"`
	NeighborDim         float64 `toml:"neighbor_dim"`
	Margin              float64 `toml:"margin"`
	CellWidth           float64 `toml:"cell_width"`
	CellHeight          float64 `toml:"cell_height"`
}

type CommitConfig struct {
	GraceWindow string `toml:"grace_window"`
}

type SlotsConfig struct {
	Strategy string `toml:"strategy"` // double_buffer | rolling
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type KeyConfig struct {
	Reject      string `toml:"reject"`
	Advance     string `toml:"advance"`
	CycleFilter string `toml:"cycle_filter"`
	Reset       string `toml:"reset"`
	CopyID      string `toml:"copy_id"`
}

func defaultStages() []StageConfig {
	return []StageConfig{
		{Key: "audition", Label: "Audition"},
		{Key: "callback", Label: "Callback"},
		{Key: "chemistry_read", Label: "Chemistry read"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".shortlist/log",
			},
		},
		Review: ReviewConfig{
			Role:                "",
			Stages:              defaultStages(),
			InitialState:        "applied",
			TerminalStates:      []string{"shortlisted", "offered"},
			NonRejectableStates: []string{"offered", "rejected"},
			OfferEnabled:        false,
			DefaultFilter:       nil,
			Filters: []FilterPreset{
				{Name: "all"},
				{Name: "new", Values: []string{"applied"}},
				{Name: "in progress", Values: []string{"in_progress"}},
				{Name: "shortlisted", Values: []string{"shortlisted"}},
			},
		},
		Gesture: GestureConfig{
			ActivationThreshold: 30,
			ReleaseThreshold:    100,
			VelocityThreshold:   500,
			HighlightThreshold:  0.5,
			NeighborDim:         0.4,
			Margin:              20,
			CellWidth:           8,
			CellHeight:          16,
		},
		Commit: CommitConfig{
			GraceWindow: "600ms",
		},
		Slots: SlotsConfig{
			Strategy: "double_buffer",
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:7878",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Keys: KeyConfig{
			Reject:      "h",
			Advance:     "l",
			CycleFilter: "f",
			Reset:       "R",
			CopyID:      "y",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	seenStage := map[string]struct{}{}
	for idx, stage := range c.Review.Stages {
		key := strings.TrimSpace(strings.ToLower(stage.Key))
		if key == "" {
			return fmt.Errorf("review.stages[%d].key is required", idx)
		}
		if domain.IsReservedKey(key) {
			return fmt.Errorf("review.stages[%d].key %q is reserved", idx, key)
		}
		if _, ok := seenStage[key]; ok {
			return fmt.Errorf("review.stages[%d].key is duplicated: %s", idx, key)
		}
		seenStage[key] = struct{}{}
	}
	if len(c.Review.Stages) > 4 {
		// Stages plus the trailing shortlist zone fill at most five bands.
		return fmt.Errorf("review.stages allows at most 4 stages, got %d", len(c.Review.Stages))
	}
	if strings.TrimSpace(c.Review.InitialState) == "" {
		return errors.New("review.initial_state is required")
	}
	for idx, preset := range c.Review.Filters {
		if strings.TrimSpace(preset.Name) == "" {
			return fmt.Errorf("review.filters[%d].name is required", idx)
		}
	}

	g := c.Gesture
	if g.ActivationThreshold <= 0 || g.ReleaseThreshold <= 0 || g.VelocityThreshold <= 0 {
		return errors.New("gesture thresholds must be > 0")
	}
	if g.ReleaseThreshold < g.ActivationThreshold {
		return fmt.Errorf("gesture.release_threshold (%v) must be >= activation_threshold (%v)", g.ReleaseThreshold, g.ActivationThreshold)
	}
	if g.HighlightThreshold <= 0 || g.HighlightThreshold >= 1 {
		return fmt.Errorf("gesture.highlight_threshold must be in (0,1), got %v", g.HighlightThreshold)
	}
	if g.NeighborDim < 0 || g.NeighborDim > 1 {
		return fmt.Errorf("gesture.neighbor_dim must be in [0,1], got %v", g.NeighborDim)
	}
	if g.Margin < 0 || g.CellWidth <= 0 || g.CellHeight <= 0 {
		return errors.New("gesture.margin must be >= 0 and cell sizes > 0")
	}

	if _, err := c.Commit.Grace(); err != nil {
		return err
	}

	switch strings.TrimSpace(strings.ToLower(c.Slots.Strategy)) {
	case "", "double_buffer", "rolling":
	default:
		return fmt.Errorf("invalid slots.strategy: %q", c.Slots.Strategy)
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	return nil
}

// Grace parses the grace window. Blank means 600ms.
func (c CommitConfig) Grace() (time.Duration, error) {
	raw := strings.TrimSpace(c.GraceWindow)
	if raw == "" {
		return 600 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid commit.grace_window %q: %w", c.GraceWindow, err)
	}
	if d <= 0 || d > 5*time.Second {
		return 0, fmt.Errorf("commit.grace_window must be within (0s,5s], got %s", d)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
