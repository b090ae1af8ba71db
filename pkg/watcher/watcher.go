// Package watcher re-imports the seed CSV files when they change on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/seed"
)

// Default debounce timings. Editors often write a file several times in a
// row when saving.
const (
	DefaultQuietPeriod = 500 * time.Millisecond
	DefaultMaxWait     = 5 * time.Second
)

// ChangeEvent reports a change to one seed file
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a seed directory for nodes.csv and edges.csv changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan ChangeEvent
}

// NewFileWatcher starts watching dir
func NewFileWatcher(dir string) (*FileWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("seed directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("seed directory %s is not a directory", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watching the directory rather than the files survives editors that
	// replace files by renaming
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &FileWatcher{
		watcher: w,
		dir:     dir,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start forwards relevant file system events until ctx is done
func (fw *FileWatcher) Start(ctx context.Context) {
	logging.Info("watching seed directory", "path", fw.dir)
	go fw.processEvents(ctx)
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove) {
				continue
			}
			kind, ok := classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("seed file event", "path", event.Name, "op", event.Op.String())

			select {
			case fw.events <- ChangeEvent{Type: kind, Paths: []string{event.Name}, Timestamp: time.Now()}:
			default:
				logging.Warn("watcher event channel full, dropping event", "path", event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Importer receives a freshly parsed seed network
type Importer interface {
	Import(ctx context.Context, g *model.Graph) error
}

// WatchSeedDir re-imports dir into imp whenever its CSV files settle after a
// change. It blocks until ctx is done. Parse or import failures are logged
// and the previous network stays active.
func WatchSeedDir(ctx context.Context, dir string, imp Importer, quietPeriod, maxWait time.Duration) error {
	fw, err := NewFileWatcher(dir)
	if err != nil {
		return err
	}
	fw.Start(ctx)

	d := NewDebouncer(fw.Events(), quietPeriod, maxWait)
	d.Start(ctx)

	for batch := range d.Output() {
		analysis := AnalyzeChanges(batch...)
		if !analysis.NeedReimport() {
			continue
		}
		logging.Info("seed files changed", "files", len(analysis.ChangedFiles),
			"nodes", analysis.NodesChanged, "edges", analysis.EdgesChanged)

		g, err := seed.LoadCSV(filepath.Join(dir, seed.NodesFile), filepath.Join(dir, seed.EdgesFile))
		if err != nil {
			logging.Warn("seed re-import skipped", "error", err)
			continue
		}
		if err := imp.Import(ctx, g); err != nil {
			logging.Error("seed re-import failed", "error", err)
			continue
		}
		logging.Info("seed re-imported", "nodes", len(g.Nodes), "edges", len(g.Edges))
	}
	return ctx.Err()
}
