// Package watch triggers the pipeline when the upstream producer deposits
// new batch files into the landing directory.
package watch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem events on the landing directory into
// pipeline runs. Producers write files incrementally, so a quiet period is
// required before a batch is considered fully deposited.
type Watcher struct {
	dir      string
	debounce time.Duration
	run      func() error
}

// New creates a watcher that calls run after the landing directory has been
// quiet for the debounce interval following a change.
func New(dir string, debounce time.Duration, run func() error) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{dir: dir, debounce: debounce, run: run}
}

// Watch blocks until ctx is cancelled. It runs the pipeline once at startup
// to pick up files deposited while nothing was watching, then on every
// debounced change to a *.json file.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	if err := w.run(); err != nil {
		log.Printf("initial run: %v", err)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			if err := w.run(); err != nil {
				log.Printf("pipeline run: %v", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// relevant filters for deposited batch files; processed markers are noise.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name := event.Name
	return strings.HasSuffix(name, ".json") &&
		!strings.HasSuffix(name, ".done") && !strings.HasSuffix(name, ".failed")
}
