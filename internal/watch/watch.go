// Package watch rebuilds the site when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const defaultDebounce = 300 * time.Millisecond

// Event is a change to one source path, relative to the watched root.
type Event struct {
	Path string
	Op   string
}

// Handler receives each debounced batch of events.
type Handler func(ctx context.Context, events []Event) error

// Config controls a Watcher.
type Config struct {
	Root string
	// Ignore lists doublestar patterns matched against root-relative paths. A
	// pattern also ignores everything below a matching directory.
	Ignore   []string
	Debounce time.Duration
	Logger   interfaces.Logger
}

// Watcher groups bursts of file changes and hands them to a Handler.
type Watcher struct {
	cfg     Config
	root    string
	handler Handler
	logger  interfaces.Logger
	fsw     *fsnotify.Watcher
}

// New creates a Watcher over cfg.Root and registers every directory below it.
func New(cfg Config, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: handler is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	w := &Watcher{cfg: cfg, root: root, handler: handler, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]Event{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			rel, relevant := w.relevant(ev.Name)
			if !relevant {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("watch.add_failed", "path", rel, "error", err)
					}
				}
			}
			pending[rel] = Event{Path: rel, Op: opName(ev.Op)}
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch.error", "error", err)
		case <-fire:
			fire = nil
			batch := flush(pending)
			pending = map[string]Event{}
			w.logger.Info("watch.changed", "files", len(batch))
			if err := w.handler(ctx, batch); err != nil {
				w.logger.Error("watch.handler_failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if _, ok := w.relevant(p); !ok {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
		return nil
	})
}

// relevant maps an absolute path to its root-relative form and reports
// whether it should trigger a rebuild.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return rel, false
		}
	}
	base := filepath.Base(name)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
		return rel, false
	}
	for _, pattern := range w.cfg.Ignore {
		pattern = strings.Trim(strings.TrimSpace(pattern), "/")
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return rel, false
		}
		if ok, _ := doublestar.Match(pattern+"/**", rel); ok {
			return rel, false
		}
	}
	return rel, true
}

func flush(pending map[string]Event) []Event {
	out := make([]Event, 0, len(pending))
	for _, ev := range pending {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Remove):
		return "deleted"
	case op.Has(fsnotify.Rename):
		return "renamed"
	default:
		return "modified"
	}
}
