package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/shortlist/internal/app"
	"github.com/evanschultz/shortlist/internal/domain"
)

// Column and card sizing in cells.
const (
	zoneColumnWidth = 18
	minCardWidth    = 24
	maxCardWidth    = 64
)

var (
	accentColor = lipgloss.Color("62")
	rejectColor = lipgloss.Color("203")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
)

// View renders the review screen.
func (m Model) View() tea.View {
	return newView(m.render())
}

// render builds the frame text.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress R to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	view := m.engine.View()
	sections := []string{m.renderHeader(view), ""}
	if !view.Top.Filled {
		sections = append(sections, m.renderEmpty(view))
	} else {
		sections = append(sections, m.renderBody(view))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	statusLine := lipgloss.NewStyle().Foreground(dimColor).Padding(0, 1).Render(m.status)
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		footerHeight := lipgloss.Height(statusLine) + lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-footerHeight))
	}
	return content + "\n" + statusLine + "\n" + helpLine
}

// newView applies the screen modes every frame shares.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	v.ReportFocus = true
	return v
}

// renderHeader renders the title, role, filter, and progress.
func (m Model) renderHeader(view app.EngineView) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	metaStyle := lipgloss.NewStyle().Foreground(dimColor)
	header := titleStyle.Render("shortlist") + "  " + view.RoleID
	header += metaStyle.Render("  filter: " + m.filters[clamp(m.filterIdx, 0, len(m.filters)-1)].Name)
	q := view.Queue
	if q.Active && q.Len > 0 {
		header += metaStyle.Render(fmt.Sprintf("  %d/%d", min(q.Cursor+1, q.Len), q.Len))
	}
	if view.Busy {
		header += metaStyle.Render("  saving")
	}
	return header
}

// renderEmpty renders the exhausted or not-yet-loaded state.
func (m Model) renderEmpty(view app.EngineView) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor)
	if !view.Queue.Active {
		return hintStyle.Render("waiting for applicants...")
	}
	lines := []string{titleStyle.Render("All caught up.")}
	if view.Queue.Len == 0 && view.Queue.Total > 0 {
		lines = append(lines, hintStyle.Render("Nobody matches this filter. Press f to change it."))
	} else {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("No more applicants for %s.", view.RoleID)))
	}
	lines = append(lines, hintStyle.Render("Press R to start a new session."))
	return strings.Join(lines, "\n")
}

// renderBody lays out the reject column, the card stack, and the action column.
func (m Model) renderBody(view app.EngineView) string {
	areaWidth := max(minCardWidth, m.width-2*zoneColumnWidth-2)
	cardWidth := clamp(areaWidth-4, minCardWidth, maxCardWidth)

	left := m.renderRejectColumn(view.Zones)
	right := m.renderZoneColumn(view.Zones)

	top := m.renderTopCard(view.Top.Item, cardWidth)
	base := (areaWidth - cardWidth) / 2
	offset := int(m.feedback.DX / m.cellWidth)
	top = lipgloss.NewStyle().MarginLeft(clamp(base+offset, 0, max(0, areaWidth-cardWidth))).Render(top)

	stack := []string{top}
	if view.Back.Filled {
		scale := app.BackScale(m.feedback.MaxIntensity())
		backWidth := max(minCardWidth/2, int(float64(cardWidth)*scale))
		back := m.renderBackCard(view.Back.Item, backWidth)
		stack = append(stack, lipgloss.PlaceHorizontal(areaWidth, lipgloss.Center, back))
	}
	center := lipgloss.NewStyle().Width(areaWidth).Render(strings.Join(stack, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, center, right)
}

// renderTopCard renders the applicant under review.
func (m Model) renderTopCard(item domain.Applicant, width int) string {
	border := accentColor
	if m.feedback.HasActive {
		border = zoneColor(m.feedback.ActiveZone)
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)
	nameStyle := lipgloss.NewStyle().Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(mutedColor)

	lines := []string{nameStyle.Render(truncate(item.DisplayName(), width-4))}
	if item.Profile.Headline != "" {
		lines = append(lines, subStyle.Render(truncate(item.Profile.Headline, width-4)))
	}
	lines = append(lines, subStyle.Render("stage: "+string(item.ProcessState)))
	if len(item.Profile.Tags) > 0 {
		lines = append(lines, subStyle.Render(truncate("#"+strings.Join(item.Profile.Tags, " #"), width-4)))
	}
	if notes := m.notes.render(item.ID, item.Profile.Notes, width-4); notes != "" {
		lines = append(lines, "", notes)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderBackCard renders the preloaded next applicant.
func (m Model) renderBackCard(item domain.Applicant, width int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Foreground(mutedColor).
		Padding(0, 1).
		Width(width).
		Render("next: " + truncate(item.DisplayName(), width-10))
}

// renderRejectColumn renders the left zone.
func (m Model) renderRejectColumn(zones domain.ZoneSet) string {
	style := lipgloss.NewStyle().Width(zoneColumnWidth).Padding(1, 1)
	if !zones.CanReject {
		return style.Foreground(dimColor).Render("")
	}
	label := "← " + zones.Reject.Label
	return style.Render(m.zoneStyle(zones.Reject).Render(label))
}

// renderZoneColumn renders the right zones top to bottom, matching their vertical bands.
func (m Model) renderZoneColumn(zones domain.ZoneSet) string {
	style := lipgloss.NewStyle().Width(zoneColumnWidth).Padding(1, 1)
	if len(zones.Right) == 0 {
		return style.Foreground(dimColor).Render("no forward\nactions")
	}
	lines := make([]string, 0, len(zones.Right)*2)
	for idx, zone := range zones.Right {
		label := fmt.Sprintf("%d %s →", idx+1, zone.Label)
		if idx >= maxZoneKeys {
			label = zone.Label + " →"
		}
		lines = append(lines, m.zoneStyle(zone).Render(truncate(label, zoneColumnWidth-2)), "")
	}
	return style.Render(strings.Join(lines[:len(lines)-1], "\n"))
}

// zoneStyle highlights a zone by its current drag intensity.
func (m Model) zoneStyle(zone domain.ActionZone) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(mutedColor)
	intensity := m.feedback.Intensity[zone.Key]
	threshold := m.engine.GestureConfig().HighlightThreshold
	switch {
	case m.feedback.HasActive && m.feedback.ActiveZone.Key == zone.Key && intensity > threshold:
		return style.Foreground(zoneColor(zone)).Bold(true).Reverse(true)
	case intensity > 0:
		return style.Foreground(zoneColor(zone)).Bold(true)
	default:
		return style
	}
}

func zoneColor(zone domain.ActionZone) color.Color {
	if zone.Direction == domain.DirectionLeft {
		return rejectColor
	}
	return lipgloss.Color("42")
}

// fitLines pads or trims content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n <= 1 {
		return string(rs[:n])
	}
	return string(rs[:n-1]) + "…"
}
