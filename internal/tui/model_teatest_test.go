package tui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"
)

// TestModelWithTeatest verifies a keyboard review pass in a running program.
func TestModelWithTeatest(t *testing.T) {
	h := newHarness(t, threeApplicants()...)
	tm := teatest.NewTestModel(t, NewModel(h.engine), teatest.WithInitialTermSize(100, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Ada Lovelace")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'l', Text: "l"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Alan Turing")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	if got := h.exec.recorded(); len(got) != 1 || got[0] != "a1:callback" {
		t.Fatalf("unexpected executed decisions %#v", got)
	}
}

// TestModelWithTeatestHelpAndExhaustion verifies help expansion and the exhausted screen.
func TestModelWithTeatestHelpAndExhaustion(t *testing.T) {
	h := newHarness(t, applicant("a1", "Ada Lovelace", "chemistry_read", 0))
	tm := teatest.NewTestModel(t, NewModel(h.engine), teatest.WithInitialTermSize(100, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Ada Lovelace")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "copy id")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'l', Text: "l"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "All caught up.")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	if got := h.exec.recorded(); len(got) != 1 || got[0] != "a1:shortlist" {
		t.Fatalf("unexpected executed decisions %#v", got)
	}
}
