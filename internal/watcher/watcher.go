package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last event before a batch is
// emitted. Editors often write a file several times in quick succession.
const DefaultDebounce = 500 * time.Millisecond

// Batch is one debounced set of filesystem changes, with paths relative to
// the watched root using forward slashes.
type Batch struct {
	Changed []string
	Deleted []string
}

// IsEmpty reports whether the batch carries no changes.
func (b Batch) IsEmpty() bool {
	return len(b.Changed) == 0 && len(b.Deleted) == 0
}

// Merge combines two batches, later entries winning per path: a path deleted
// in a and changed in b comes out changed, and vice versa.
func Merge(a, b Batch) Batch {
	m := newBatcher()
	for _, p := range a.Changed {
		m.add(p, false)
	}
	for _, p := range a.Deleted {
		m.add(p, true)
	}
	for _, p := range b.Changed {
		m.add(p, false)
	}
	for _, p := range b.Deleted {
		m.add(p, true)
	}
	return m.drain()
}

// ignoredDirs are not watched. Mirrors the indexer's walk exclusions.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".next":        true,
	"__pycache__":  true,
}

// batcher accumulates events until drained. A delete followed by a change
// for the same path collapses to a change, and vice versa; only the last
// state counts.
type batcher struct {
	pending map[string]bool // path -> deleted
}

func newBatcher() *batcher {
	return &batcher{pending: make(map[string]bool)}
}

func (b *batcher) add(path string, deleted bool) {
	b.pending[path] = deleted
}

func (b *batcher) empty() bool {
	return len(b.pending) == 0
}

// drain returns the accumulated batch in sorted order and resets.
func (b *batcher) drain() Batch {
	var batch Batch
	for path, deleted := range b.pending {
		if deleted {
			batch.Deleted = append(batch.Deleted, path)
		} else {
			batch.Changed = append(batch.Changed, path)
		}
	}
	sort.Strings(batch.Changed)
	sort.Strings(batch.Deleted)
	b.pending = make(map[string]bool)
	return batch
}

// Watcher emits debounced change batches for a project tree.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	batches  chan Batch
	log      zerolog.Logger
}

// New watches rootPath recursively. Batches arrive on Batches() after the
// debounce interval elapses with no further events.
func New(rootPath string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     rootPath,
		fsw:      fsw,
		debounce: debounce,
		batches:  make(chan Batch, 4),
		log:      log.With().Str("component", "watcher").Logger(),
	}

	if err := w.addRecursive(rootPath); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Batches is the stream of debounced change sets.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until the context is canceled or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	b := newBatcher()
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handleEvent(b, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			if b.empty() {
				continue
			}
			select {
			case w.batches <- b.drain():
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleEvent records one fsnotify event. It reports whether the debounce
// timer should restart.
func (w *Watcher) handleEvent(b *batcher, event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, part := range strings.Split(rel, "/") {
		if ignoredDirs[part] || strings.HasPrefix(part, ".") {
			return false
		}
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		b.add(rel, true)
		return true

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			// Gone before we could stat it; treat as a delete.
			b.add(rel, true)
			return true
		}
		if info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn().Err(err).Str("dir", rel).Msg("failed to watch new directory")
			}
			return false
		}
		b.add(rel, false)
		return true
	}

	return false
}

// addRecursive watches root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
