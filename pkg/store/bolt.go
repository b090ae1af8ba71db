package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ritzau/route-viewer/pkg/model"
	bolt "go.etcd.io/bbolt"
)

var (
	nodesBucket = []byte("nodes")
	edgesBucket = []byte("edges")
)

// BoltStore keeps the network in a single bbolt file. Nodes are keyed by
// big-endian ID so a cursor walks them in ID order; edges are keyed by
// "from\x00to" plus a sequence suffix so parallel edges survive.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database file at path
func OpenBolt(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt store: empty path")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{nodesBucket, edgesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func nodeKey(id int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func edgeKey(e model.Edge, seq uint64) []byte {
	k := make([]byte, 0, len(e.From)+len(e.To)+10)
	k = append(k, e.From...)
	k = append(k, 0)
	k = append(k, e.To...)
	k = append(k, 0)
	return binary.BigEndian.AppendUint64(k, seq)
}

// LoadGraph implements Store
func (s *BoltStore) LoadGraph(ctx context.Context) (*model.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := model.NewGraph()
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(nodesBucket).ForEach(func(k, v []byte) error {
			var n model.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("decoding node %x: %w", k, err)
			}
			g.Nodes = append(g.Nodes, n)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(edgesBucket).ForEach(func(k, v []byte) error {
			var e model.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding edge %q: %w", k, err)
			}
			g.Edges = append(g.Edges, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ReplaceGraph implements Store
func (s *BoltStore) ReplaceGraph(ctx context.Context, g *model.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{nodesBucket, edgesBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("clearing bucket %s: %w", name, err)
			}
		}
		nodes, err := tx.CreateBucket(nodesBucket)
		if err != nil {
			return err
		}
		edges, err := tx.CreateBucket(edgesBucket)
		if err != nil {
			return err
		}

		for _, n := range g.Nodes {
			v, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := nodes.Put(nodeKey(n.ID), v); err != nil {
				return err
			}
		}
		for _, e := range g.Edges {
			seq, err := edges.NextSequence()
			if err != nil {
				return err
			}
			v, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := edges.Put(edgeKey(e, seq), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateEdge implements Store
func (s *BoltStore) UpdateEdge(ctx context.Context, from, to string, u EdgeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(edgesBucket)

		// Collect first: bbolt cursors must not be used across mutations
		type update struct{ key, value []byte }
		var updates []update
		err := b.ForEach(func(k, v []byte) error {
			var e model.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding edge %q: %w", k, err)
			}
			if !e.Connects(from, to) {
				return nil
			}
			u.apply(&e)
			nv, err := json.Marshal(e)
			if err != nil {
				return err
			}
			updates = append(updates, update{key: append([]byte(nil), k...), value: nv})
			return nil
		})
		if err != nil {
			return err
		}

		if len(updates) == 0 {
			return fmt.Errorf("edge %s-%s: %w", from, to, ErrNotFound)
		}
		for _, u := range updates {
			if err := b.Put(u.key, u.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store
func (s *BoltStore) Close() error {
	return s.db.Close()
}
