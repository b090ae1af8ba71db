package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/ritzau/route-viewer/pkg/model"
)

// MySQLStore keeps the network in two tables, nodes and edges
type MySQLStore struct {
	DB *sql.DB
}

const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
	id        INT          NOT NULL PRIMARY KEY,
	name      VARCHAR(255) NOT NULL UNIQUE,
	latitude  DOUBLE       NOT NULL,
	longitude DOUBLE       NOT NULL
)`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
	edge_id     BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
	from_node   VARCHAR(255) NOT NULL,
	to_node     VARCHAR(255) NOT NULL,
	road_type   VARCHAR(32)  NOT NULL,
	distance_km DOUBLE       NOT NULL,
	closed      BOOLEAN      NOT NULL DEFAULT FALSE,
	one_way     BOOLEAN      NOT NULL DEFAULT FALSE,
	INDEX idx_edges_from (from_node),
	INDEX idx_edges_to (to_node)
)`

// OpenMySQL connects to dsn and creates the schema if needed
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating mysql connector: %w", err)
	}

	s := &MySQLStore{DB: sql.OpenDB(connector)}
	if err := s.DB.PingContext(ctx); err != nil {
		s.DB.Close()
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.DB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the nodes and edges tables
func (s *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{schemaNodes, schemaEdges} {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// LoadGraph implements Store
func (s *MySQLStore) LoadGraph(ctx context.Context) (*model.Graph, error) {
	g := model.NewGraph()

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, latitude, longitude FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n model.Node
		if err := rows.Scan(&n.ID, &n.Name, &n.Lat, &n.Lon); err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := s.DB.QueryContext(ctx, `
		SELECT from_node, to_node, road_type, distance_km, closed, one_way
		FROM edges
		ORDER BY edge_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e model.Edge
		var rt string
		if err := edgeRows.Scan(&e.From, &e.To, &rt, &e.Distance, &e.Closed, &e.OneWay); err != nil {
			return nil, err
		}
		e.RoadType = model.RoadType(rt)
		g.Edges = append(g.Edges, e)
	}
	return g, edgeRows.Err()
}

// ReplaceGraph implements Store
func (s *MySQLStore) ReplaceGraph(ctx context.Context, g *model.Graph) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	for _, n := range g.Nodes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO nodes (id, name, latitude, longitude) VALUES (?, ?, ?, ?)`,
			n.ID, n.Name, n.Lat, n.Lon); err != nil {
			return fmt.Errorf("inserting node %q: %w", n.Name, err)
		}
	}
	for _, e := range g.Edges {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO edges (from_node, to_node, road_type, distance_km, closed, one_way) VALUES (?, ?, ?, ?, ?, ?)`,
			e.From, e.To, string(e.RoadType), e.Distance, e.Closed, e.OneWay); err != nil {
			return fmt.Errorf("inserting edge %s-%s: %w", e.From, e.To, err)
		}
	}

	return tx.Commit()
}

// UpdateEdge implements Store
func (s *MySQLStore) UpdateEdge(ctx context.Context, from, to string, u EdgeUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Closed != nil {
		sets = append(sets, "closed=?")
		args = append(args, *u.Closed)
	}
	if u.RoadType != nil {
		sets = append(sets, "road_type=?")
		args = append(args, string(*u.RoadType))
	}

	if len(sets) > 0 {
		res, err := s.DB.ExecContext(ctx,
			`UPDATE edges SET `+strings.Join(sets, ", ")+` WHERE (from_node=? AND to_node=?) OR (from_node=? AND to_node=?)`,
			append(args, from, to, to, from)...)
		if err != nil {
			return err
		}

		// RowsAffected counts changed rows only; check existence separately so a
		// no-op update is not reported as missing.
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE (from_node=? AND to_node=?) OR (from_node=? AND to_node=?)`,
		from, to, to, from).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("edge %s-%s: %w", from, to, ErrNotFound)
	}
	return nil
}

// Close implements Store
func (s *MySQLStore) Close() error {
	return s.DB.Close()
}
