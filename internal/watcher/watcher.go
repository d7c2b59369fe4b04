// Package watcher follows directories of email documents and delivers each
// burst of edits as one batch of decoded documents.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/mailblocks/internal/config"
	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/types"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// DefaultPatterns select the files a watcher reports.
var DefaultPatterns = []string{"*.mjml"}

// Op is what happened to a document.
type Op int

const (
	// OpChanged covers created and written files.
	OpChanged Op = iota
	// OpRemoved covers deleted files and files renamed away.
	OpRemoved
)

func (o Op) String() string {
	if o == OpRemoved {
		return "removed"
	}
	return "changed"
}

// Document is one file of a batch. Tree is set when the file was read and
// decoded; Err holds the read or decode failure otherwise.
type Document struct {
	Path   string
	Op     Op
	Source string
	Tree   *types.Block
	Err    error
}

// Batch holds the documents that settled in one debounce window, sorted by
// path. A path appears at most once.
type Batch []Document

// Paths lists the paths of the batch.
func (b Batch) Paths() []string {
	out := make([]string, len(b))
	for i, d := range b {
		out[i] = d.Path
	}
	return out
}

// Decoder turns file text into a tree. *markup.Decoder satisfies it.
type Decoder interface {
	DecodeContext(ctx context.Context, text string) (*types.Block, error)
}

// Handler receives settled batches on the watcher's goroutine.
type Handler func(ctx context.Context, batch Batch)

// Options configure a Watcher.
type Options struct {
	// Patterns are base-name globs; empty means DefaultPatterns.
	Patterns []string
	// Ignore names directories that are never entered and files below them
	// that are never reported.
	Ignore   []string
	Debounce time.Duration
	// Decoder fills Document.Tree. Without one only Source is set.
	Decoder Decoder
	Logger  logging.Logger
}

// FromConfig builds Options from the watch section of the configuration.
func FromConfig(cfg config.WatchConfig, dec Decoder, logger logging.Logger) Options {
	return Options{
		Patterns: cfg.Patterns,
		Ignore:   cfg.Ignore,
		Debounce: cfg.Debounce,
		Decoder:  dec,
		Logger:   logger,
	}
}

// Watcher reports changes to matching documents below a set of roots.
type Watcher struct {
	fs      *fsnotify.Watcher
	opts    Options
	handler Handler
	logger  logging.Logger

	mu   sync.Mutex
	dirs map[string]bool

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// New creates a watcher that passes every batch to handler.
func New(opts Options, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher needs a handler")
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	for _, p := range opts.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid watch pattern %q: %w", p, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		fs:      fsw,
		opts:    opts,
		handler: handler,
		logger:  opts.Logger.WithComponent("watcher"),
		dirs:    make(map[string]bool),
	}, nil
}

// Add watches root and every directory below it that is not ignored.
func (w *Watcher) Add(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	return w.addTree(filepath.Clean(root), nil)
}

// addTree registers dir and its subdirectories. Matching files met on the
// way are passed to found.
func (w *Watcher) addTree(dir string, found func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if found != nil && w.matches(path) {
				found(path)
			}
			return nil
		}
		if path != dir && w.ignoredDir(d.Name()) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		seen := w.dirs[path]
		w.dirs[path] = true
		w.mu.Unlock()
		if seen {
			return nil
		}
		return w.fs.Add(path)
	})
}

// Dirs returns the watched directories in order.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) ignoredDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	for _, ig := range w.opts.Ignore {
		if name == ig {
			return true
		}
	}
	return false
}

// matches reports whether path is a document the watcher reports.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	for _, elem := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		for _, ig := range w.opts.Ignore {
			if elem == ig {
				return false
			}
		}
	}
	for _, p := range w.opts.Patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Start runs the event loop until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() { go w.run(ctx) })
}

// Close stops the watcher. Pending changes are discarded.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { w.closeErr = w.fs.Close() })
	return w.closeErr
}

func (w *Watcher) run(ctx context.Context) {
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]Op)
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.track(ctx, event, pending) {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "File watcher error")
		case <-timer.C:
			if len(pending) > 0 {
				w.handler(ctx, w.collect(ctx, pending))
				pending = make(map[string]Op)
			}
		}
	}
}

// track records event in pending and reports whether it counts as a change.
// New directories are watched, and documents already inside them are
// recorded, so files written right after a mkdir are not lost.
func (w *Watcher) track(ctx context.Context, event fsnotify.Event, pending map[string]Op) bool {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.dirs, event.Name)
		w.mu.Unlock()
		if !w.matches(event.Name) {
			return false
		}
		pending[event.Name] = OpRemoved
		return true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.ignoredDir(info.Name()) {
				return false
			}
			added := false
			err := w.addTree(event.Name, func(path string) {
				pending[path] = OpChanged
				added = true
			})
			if err != nil {
				w.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
			}
			return added
		}
		if !w.matches(event.Name) {
			return false
		}
		pending[event.Name] = OpChanged
		return true
	}
	return false
}

// collect reads and decodes the pending documents.
func (w *Watcher) collect(ctx context.Context, pending map[string]Op) Batch {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	batch := make(Batch, 0, len(paths))
	for _, path := range paths {
		batch = append(batch, w.load(ctx, path))
	}
	w.logger.Debug(ctx, "Delivering changes", "documents", len(batch))
	return batch
}

// load reads one document. A file that is gone is reported as removed
// whatever event announced it, and one that reappeared after a rename is
// reported as changed.
func (w *Watcher) load(ctx context.Context, path string) Document {
	doc := Document{Path: path, Op: OpChanged}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		doc.Op = OpRemoved
		return doc
	}
	if err != nil {
		doc.Err = err
		return doc
	}
	doc.Source = string(data)

	if w.opts.Decoder != nil {
		doc.Tree, doc.Err = w.opts.Decoder.DecodeContext(ctx, doc.Source)
	}
	return doc
}
