package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/umdpack/internal/telemetry"
)

const DefaultDebounce = 100 * time.Millisecond

// BuildFunc is invoked once at start and again after every burst of changes.
type BuildFunc func(ctx context.Context) error

// Watcher rebuilds when files under its directories change. Builds never overlap.
type Watcher struct {
	fw       *fsnotify.Watcher
	log      zerolog.Logger
	debounce time.Duration
	ignore   []string
}

func New(log zerolog.Logger, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{fw: fw, log: log, debounce: debounce}, nil
}

// Ignore skips events for paths under dir, typically the output directory.
func (w *Watcher) Ignore(dir string) {
	w.ignore = append(w.ignore, filepath.Clean(dir))
}

// Add watches root and every directory below it, skipping node_modules and hidden directories.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) || w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return err
		}
		w.log.Debug().Str("dir", path).Msg("Watching directory")
		return nil
	})
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run builds, then rebuilds after changes until ctx is cancelled. Build
// failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, build BuildFunc) error {
	w.build(ctx, build)

	var (
		timer *time.Timer
		fire  <-chan time.Time
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

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
				continue
			}

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						w.log.Warn().Err(err).Str("dir", ev.Name).Msg("Failed to watch directory")
					}
				}
			}

			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("File changed")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")

		case <-fire:
			fire = nil
			telemetry.GetMetrics().RebuildsTotal.Add(ctx, 1)
			w.build(ctx, build)
		}
	}
}

func (w *Watcher) build(ctx context.Context, build BuildFunc) {
	if err := build(ctx); err != nil {
		w.log.Error().Err(err).Msg("Build failed, waiting for changes")
	}
}

func (w *Watcher) ignored(path string) bool {
	path = filepath.Clean(path)
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}
