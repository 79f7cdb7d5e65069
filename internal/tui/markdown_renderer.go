package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// notesRenderer renders applicant notes and caches the last result per applicant and width.
type notesRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	cacheKey string
	cached   string
}

// render converts markdown notes into ANSI-styled terminal text wrapped at width.
func (r *notesRenderer) render(applicantID, markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, 20)
	cacheKey := applicantID + "\x00" + markdown
	if r.renderer != nil && r.width == wrapWidth && r.cacheKey == cacheKey {
		return r.cached
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	r.cacheKey = cacheKey
	r.cached = strings.Trim(rendered, "\n")
	return r.cached
}
