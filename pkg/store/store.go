// Package store persists the road network. Two backends are provided: an
// embedded bbolt file (the default) and MySQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ritzau/route-viewer/pkg/model"
)

// ErrNotFound is returned when an edge to update does not exist
var ErrNotFound = errors.New("not found")

// Store loads and mutates the persisted road network
type Store interface {
	// LoadGraph reads the whole network. Nodes are returned ordered by ID.
	LoadGraph(ctx context.Context) (*model.Graph, error)

	// ReplaceGraph atomically swaps the stored network for g
	ReplaceGraph(ctx context.Context, g *model.Graph) error

	// UpdateEdge applies u to every edge joining from and to in a single
	// transaction
	UpdateEdge(ctx context.Context, from, to string, u EdgeUpdate) error

	// Close releases the underlying database
	Close() error
}

// EdgeUpdate lists edge fields to change. Nil fields are left alone.
type EdgeUpdate struct {
	Closed   *bool
	RoadType *model.RoadType
}

// Empty reports whether u changes nothing
func (u EdgeUpdate) Empty() bool {
	return u.Closed == nil && u.RoadType == nil
}

func (u EdgeUpdate) apply(e *model.Edge) {
	if u.Closed != nil {
		e.Closed = *u.Closed
	}
	if u.RoadType != nil {
		e.RoadType = *u.RoadType
	}
}

// Config selects and configures a backend
type Config struct {
	Driver string // "bolt" or "mysql"
	Path   string // bolt database file
	DSN    string // mysql data source name
}

// Open opens the configured backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "bolt":
		return OpenBolt(cfg.Path)
	case "mysql":
		return OpenMySQL(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// IsEmpty reports whether the store holds no nodes
func IsEmpty(ctx context.Context, s Store) (bool, error) {
	g, err := s.LoadGraph(ctx)
	if err != nil {
		return false, err
	}
	return len(g.Nodes) == 0, nil
}
