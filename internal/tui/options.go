package tui

import (
	"strings"
	"time"
)

// FilterPreset is one named filter the user can cycle through.
type FilterPreset struct {
	Name   string
	Values []string
}

// Option configures a Model.
type Option func(*Model)

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithFilterPresets sets the presets cycled by the filter key. "All" is always first.
func WithFilterPresets(presets []FilterPreset) Option {
	return func(m *Model) {
		m.filters = []FilterPreset{{Name: "all"}}
		for _, preset := range presets {
			name := strings.TrimSpace(preset.Name)
			if name == "" || strings.EqualFold(name, "all") {
				continue
			}
			m.filters = append(m.filters, FilterPreset{Name: name, Values: append([]string(nil), preset.Values...)})
		}
	}
}

// WithCellSize sets the pointer units per terminal cell used to feed the gesture classifier.
func WithCellSize(width, height float64) Option {
	return func(m *Model) {
		if width > 0 {
			m.cellWidth = width
		}
		if height > 0 {
			m.cellHeight = height
		}
	}
}

// WithWatchPath watches a file or directory and refetches when it changes.
func WithWatchPath(path string) Option {
	return func(m *Model) {
		m.watchPath = strings.TrimSpace(path)
	}
}

// WithInvalidator is called with the role id before a watch-triggered refetch.
func WithInvalidator(fn func(roleID string)) Option {
	return func(m *Model) {
		m.invalidate = fn
	}
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

// WithClock overrides the time source used for drag velocity.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
