package watcher

import (
	"path/filepath"

	"github.com/ritzau/route-viewer/pkg/seed"
)

// ChangeType identifies which seed file changed
type ChangeType int

const (
	ChangeTypeNodes ChangeType = iota
	ChangeTypeEdges
)

func (c ChangeType) String() string {
	if c == ChangeTypeNodes {
		return seed.NodesFile
	}
	return seed.EdgesFile
}

// classify maps a path to the seed file it is, if any
func classify(path string) (ChangeType, bool) {
	switch filepath.Base(path) {
	case seed.NodesFile:
		return ChangeTypeNodes, true
	case seed.EdgesFile:
		return ChangeTypeEdges, true
	}
	return 0, false
}

// ChangeAnalysis summarises a debounced batch of seed file changes
type ChangeAnalysis struct {
	NodesChanged bool
	EdgesChanged bool
	ChangedFiles []string
}

// NeedReimport reports whether the batch touched either seed file. Both
// files are re-read together because edges reference nodes by name.
func (a *ChangeAnalysis) NeedReimport() bool {
	return a.NodesChanged || a.EdgesChanged
}

// AnalyzeChanges folds a batch of events into one analysis
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	a := &ChangeAnalysis{}
	for _, ev := range events {
		switch ev.Type {
		case ChangeTypeNodes:
			a.NodesChanged = true
		case ChangeTypeEdges:
			a.EdgesChanged = true
		}
		a.ChangedFiles = append(a.ChangedFiles, ev.Paths...)
	}
	return a
}
