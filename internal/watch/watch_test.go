package watch

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	cases := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"new batch file", fsnotify.Event{Name: "/landing/stats.json", Op: fsnotify.Create}, true},
		{"written batch file", fsnotify.Event{Name: "/landing/stats.json", Op: fsnotify.Write}, true},
		{"renamed into place", fsnotify.Event{Name: "/landing/stats.json", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "/landing/stats.json", Op: fsnotify.Chmod}, false},
		{"removal", fsnotify.Event{Name: "/landing/stats.json", Op: fsnotify.Remove}, false},
		{"processed marker", fsnotify.Event{Name: "/landing/stats.json.done", Op: fsnotify.Create}, false},
		{"failed marker", fsnotify.Event{Name: "/landing/stats.json.failed", Op: fsnotify.Create}, false},
		{"unrelated file", fsnotify.Event{Name: "/landing/notes.txt", Op: fsnotify.Create}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := relevant(c.event); got != c.want {
				t.Errorf("relevant(%v) = %v, want %v", c.event, got, c.want)
			}
		})
	}
}

func TestNewDefaultsDebounce(t *testing.T) {
	w := New("/landing", 0, func() error { return nil })
	if w.debounce <= 0 {
		t.Errorf("expected positive default debounce, got %v", w.debounce)
	}
}
