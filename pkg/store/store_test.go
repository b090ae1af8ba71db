package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *model.Graph {
	g := model.NewGraph()
	g.AddNode("A", 28.6139, 77.2090)
	g.AddNode("B", 28.7041, 77.1025)
	g.AddNode("C", 28.5355, 77.3910)
	g.AddEdge(model.Edge{From: "A", To: "B", Distance: 14.4423, RoadType: model.RoadHighway})
	g.AddEdge(model.Edge{From: "B", To: "C", Distance: 34.1, RoadType: model.RoadRural})
	g.AddEdge(model.Edge{From: "C", To: "A", Distance: 20.9, OneWay: true})
	return g
}

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	empty, err := IsEmpty(ctx, s)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.ReplaceGraph(ctx, sampleGraph()))

	g, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, sampleGraph().Nodes, g.Nodes)
	assert.ElementsMatch(t, sampleGraph().Edges, g.Edges)

	closed, open := true, false
	mountain, street := model.RoadMountain, model.RoadStreet

	// Edges are matched in either direction
	require.NoError(t, s.UpdateEdge(ctx, "B", "A", EdgeUpdate{Closed: &closed}))
	require.NoError(t, s.UpdateEdge(ctx, "C", "B", EdgeUpdate{RoadType: &mountain}))

	g, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	for _, e := range g.Edges {
		switch {
		case e.Connects("A", "B"):
			assert.True(t, e.Closed, "A-B should be closed")
		case e.Connects("B", "C"):
			assert.Equal(t, model.RoadMountain, e.RoadType)
			assert.False(t, e.Closed)
		}
	}

	// Setting the same value twice is not an error
	require.NoError(t, s.UpdateEdge(ctx, "A", "B", EdgeUpdate{Closed: &closed}))

	// Both fields change together
	require.NoError(t, s.UpdateEdge(ctx, "A", "B", EdgeUpdate{Closed: &open, RoadType: &street}))
	g, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	for _, e := range g.Edges {
		if e.Connects("A", "B") {
			assert.False(t, e.Closed)
			assert.Equal(t, model.RoadStreet, e.RoadType)
		}
	}

	err = s.UpdateEdge(ctx, "A", "Z", EdgeUpdate{Closed: &closed})
	assert.ErrorIs(t, err, ErrNotFound)
	err = s.UpdateEdge(ctx, "A", "Z", EdgeUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	// Replacing drops the previous network entirely
	small := model.NewGraph()
	small.AddNode("Q", 1, 1)
	require.NoError(t, s.ReplaceGraph(ctx, small))
	g, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceGraph(ctx, sampleGraph()))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	g, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 3)
}

func TestBoltStoreCancelledContext(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.LoadGraph(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres"})
	assert.Error(t, err)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("ROUTE_VIEWER_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("ROUTE_VIEWER_TEST_MYSQL_DSN not set")
	}

	ctx := context.Background()
	s, err := OpenMySQL(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ReplaceGraph(ctx, model.NewGraph()))
	exerciseStore(t, s)
}
