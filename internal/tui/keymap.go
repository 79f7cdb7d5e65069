package tui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// maxZoneKeys bounds the numbered zone shortcuts.
const maxZoneKeys = 5

// KeyConfig holds user overrides for the review bindings. Blank values keep defaults.
type KeyConfig struct {
	Reject      string
	Advance     string
	CycleFilter string
	Reset       string
	CopyID      string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	toggleHelp  key.Binding
	reject      key.Binding
	advance     key.Binding
	zones       []key.Binding
	cycleFilter key.Binding
	reset       key.Binding
	copyID      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	k := keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		reject:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "reject")),
		advance:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "first action")),
		cycleFilter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "cycle filter")),
		reset:       key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "new session")),
		copyID:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	}
	for i := 1; i <= maxZoneKeys; i++ {
		digit := fmt.Sprintf("%d", i)
		k.zones = append(k.zones, key.NewBinding(key.WithKeys(digit), key.WithHelp(digit, "action "+digit)))
	}
	return k
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.reject, cfg.Reject, "h", "reject")
	configureBinding(&k.advance, cfg.Advance, "l", "first action")
	configureBinding(&k.cycleFilter, cfg.CycleFilter, "f", "cycle filter")
	configureBinding(&k.reset, cfg.Reset, "R", "new session")
	configureBinding(&k.copyID, cfg.CopyID, "y", "copy id")
}

// zoneIndex returns the right-zone index for a numbered shortcut.
func (k keyMap) zoneIndex(msg fmt.Stringer) (int, bool) {
	for idx, binding := range k.zones {
		if key.Matches(msg, binding) {
			return idx, true
		}
	}
	return 0, false
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.reject, k.advance, k.cycleFilter, k.reset, k.toggleHelp, k.quit}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.reject, k.advance, k.cycleFilter, k.reset, k.copyID},
		k.zones,
		{k.toggleHelp, k.quit},
	}
}

// configureBinding replaces a binding's keys from a raw config value.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns a configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	switch {
	case strings.EqualFold(raw, "space"):
		return []string{" ", "space"}, "space"
	case utf8.RuneCountInString(raw) == 1:
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	default:
		return []string{strings.ToLower(raw)}, raw
	}
}
