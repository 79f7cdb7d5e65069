package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestShouldReloadPath verifies sidecar matching.
func TestShouldReloadPath(t *testing.T) {
	cases := map[string]bool{
		"/data/shortlist.db":         true,
		"/data/shortlist.db-wal":     true,
		"/data/shortlist.db-journal": true,
		"/data/shortlist.db-shm":     false,
		"/data/other.db":             false,
	}
	for name, want := range cases {
		if got := shouldReloadPath(name, "shortlist.db"); got != want {
			t.Fatalf("shouldReloadPath(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestWatchCmdReportsWrite verifies a write to the watched file yields a change message.
func TestWatchCmdReportsWrite(t *testing.T) {
	if watchCmd("") != nil {
		t.Fatal("expected nil command for blank path")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "shortlist.db")
	if err := os.WriteFile(path, []byte("seed"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got := make(chan any, 1)
	go func() { got <- watchCmd(path)() }()

	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-got:
			if _, ok := msg.(storeChangedMsg); !ok {
				t.Fatalf("unexpected message %#v", msg)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte(time.Now().String()), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for change message")
		}
	}
}
