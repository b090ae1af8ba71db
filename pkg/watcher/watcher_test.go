package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/route-viewer/pkg/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want ChangeType
		ok   bool
	}{
		{"/seed/nodes.csv", ChangeTypeNodes, true},
		{"edges.csv", ChangeTypeEdges, true},
		{"/seed/edges.csv.swp", 0, false},
		{"/seed/README", 0, false},
	}
	for _, tt := range tests {
		got, ok := classify(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("classify(%q) = %v, %v; want %v, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnalyzeChanges(t *testing.T) {
	a := AnalyzeChanges(
		ChangeEvent{Type: ChangeTypeEdges, Paths: []string{"edges.csv"}},
		ChangeEvent{Type: ChangeTypeEdges, Paths: []string{"edges.csv"}},
	)
	if a.NodesChanged || !a.EdgesChanged || !a.NeedReimport() {
		t.Errorf("analysis = %+v", a)
	}
	if len(a.ChangedFiles) != 2 {
		t.Errorf("changed files = %v", a.ChangedFiles)
	}
	if AnalyzeChanges().NeedReimport() {
		t.Error("empty batch should not need reimport")
	}
}

func TestDebouncerQuietPeriod(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 30*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 5; i++ {
		in <- ChangeEvent{Type: ChangeTypeNodes, Paths: []string{"nodes.csv"}}
	}

	select {
	case batch := <-d.Output():
		if len(batch) != 5 {
			t.Errorf("batch size = %d, want 5", len(batch))
		}
	case <-time.After(time.Second):
		t.Fatal("no batch after quiet period")
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	in := make(chan ChangeEvent)
	d := NewDebouncer(in, 400*time.Millisecond, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Keep the input busy so the quiet period never elapses
	stop := make(chan struct{})
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				select {
				case in <- ChangeEvent{Type: ChangeTypeEdges}:
				case <-stop:
					return
				}
			}
		}
	}()
	defer close(stop)

	select {
	case batch := <-d.Output():
		if len(batch) == 0 {
			t.Error("empty batch")
		}
	case <-time.After(350 * time.Millisecond):
		t.Fatal("max wait did not force a flush")
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	in := make(chan ChangeEvent, 1)
	d := NewDebouncer(in, time.Hour, time.Hour)
	d.Start(context.Background())

	in <- ChangeEvent{Type: ChangeTypeNodes}
	close(in)

	batch, ok := <-d.Output()
	if !ok || len(batch) != 1 {
		t.Fatalf("batch = %v, %v", batch, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed")
	}
}

type recordingImporter struct {
	mu     sync.Mutex
	graphs []*model.Graph
	done   chan struct{}
}

func (r *recordingImporter) Import(_ context.Context, g *model.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs = append(r.graphs, g)
	if len(r.graphs) == 1 {
		close(r.done)
	}
	return nil
}

func TestWatchSeedDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	imp := &recordingImporter{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- WatchSeedDir(ctx, dir, imp, 50*time.Millisecond, time.Second) }()

	// Give fsnotify a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	write("nodes.csv", "Place Name,Latitude,Longitude\nA,10,10\nB,10.1,10\n")
	write("edges.csv", "from,to,road_type\nA,B,highway\n")

	select {
	case <-imp.done:
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatal("seed directory change was not imported")
	}

	cancel()
	if err := <-errc; err != context.Canceled {
		t.Errorf("WatchSeedDir returned %v, want context.Canceled", err)
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	g := imp.graphs[len(imp.graphs)-1]
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("imported %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
}

func TestNewFileWatcherRejectsMissingDir(t *testing.T) {
	if _, err := NewFileWatcher(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}
