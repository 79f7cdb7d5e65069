package tui

import (
	"path/filepath"

	tea "charm.land/bubbletea/v2"
	"github.com/fsnotify/fsnotify"
)

// storeChangedMsg reports a write to the watched store.
type storeChangedMsg struct{}

// watchCmd blocks until the watched path changes once. The model re-arms it after each change.
func watchCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil
		}
		defer watcher.Close()

		dir := filepath.Dir(path)
		if err := watcher.Add(dir); err != nil {
			return nil
		}
		base := filepath.Base(path)
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if shouldReloadPath(evt.Name, base) {
					return storeChangedMsg{}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// shouldReloadPath matches the store file and its sqlite sidecars.
func shouldReloadPath(name, base string) bool {
	got := filepath.Base(name)
	switch got {
	case base, base + "-wal", base + "-journal":
		return true
	default:
		return false
	}
}
