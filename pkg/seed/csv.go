// Package seed produces road networks to load into a store: the built-in
// sample network, CSV imports and randomly generated edge sets.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
)

// File names looked up inside a seed directory
const (
	NodesFile = "nodes.csv"
	EdgesFile = "edges.csv"
)

// Column names. Matching is case-insensitive and ignores surrounding spaces.
const (
	colPlaceName = "place name"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colFrom      = "from"
	colTo        = "to"
	colRoadType  = "road_type"
	colDistance  = "distance_km"
	colOneWay    = "one_way"
)

// header maps column names to their index
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	row, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}

	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return h, nil
}

func (h header) get(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadNodes reads "Place Name, Latitude, Longitude" rows into g
func ReadNodes(r io.Reader, g *model.Graph) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, colPlaceName, colLatitude, colLongitude)
	if err != nil {
		return fmt.Errorf("nodes: %w", err)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("nodes line %d: %w", line, err)
		}

		name := h.get(row, colPlaceName)
		if name == "" {
			return fmt.Errorf("nodes line %d: empty place name", line)
		}
		lat, err := strconv.ParseFloat(h.get(row, colLatitude), 64)
		if err != nil {
			return fmt.Errorf("nodes line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(h.get(row, colLongitude), 64)
		if err != nil {
			return fmt.Errorf("nodes line %d: longitude: %w", line, err)
		}
		g.AddNode(name, lat, lon)
	}
}

// ReadEdges reads "from, to, road_type[, distance_km][, one_way]" rows into
// g. Nodes must already be present; missing distances are computed from the
// endpoint coordinates.
func ReadEdges(r io.Reader, g *model.Graph) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	h, err := readHeader(cr, colFrom, colTo)
	if err != nil {
		return fmt.Errorf("edges: %w", err)
	}

	points := make(map[string]geo.Point, len(g.Nodes))
	for _, n := range g.Nodes {
		points[n.Name] = geo.Point{Lat: n.Lat, Lon: n.Lon}
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("edges line %d: %w", line, err)
		}

		e := model.Edge{From: h.get(row, colFrom), To: h.get(row, colTo)}
		from, ok := points[e.From]
		if !ok {
			return fmt.Errorf("edges line %d: %w: %q", line, model.ErrUnknownNode, e.From)
		}
		to, ok := points[e.To]
		if !ok {
			return fmt.Errorf("edges line %d: %w: %q", line, model.ErrUnknownNode, e.To)
		}

		if e.RoadType, err = model.ParseRoadType(h.get(row, colRoadType)); err != nil {
			return fmt.Errorf("edges line %d: %w", line, err)
		}

		if v := h.get(row, colDistance); v != "" {
			if e.Distance, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("edges line %d: distance: %w", line, err)
			}
		} else {
			e.Distance = round4(geo.Haversine(from, to))
		}

		if v := h.get(row, colOneWay); v != "" {
			if e.OneWay, err = strconv.ParseBool(v); err != nil {
				return fmt.Errorf("edges line %d: one_way: %w", line, err)
			}
		}

		g.AddEdge(e)
	}
}

// LoadCSV reads a network from a nodes file and an edges file and validates it
func LoadCSV(nodesPath, edgesPath string) (*model.Graph, error) {
	g := model.NewGraph()

	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, err
	}
	defer nf.Close()
	if err := ReadNodes(nf, g); err != nil {
		return nil, fmt.Errorf("%s: %w", nodesPath, err)
	}

	ef, err := os.Open(edgesPath)
	if err != nil {
		return nil, err
	}
	defer ef.Close()
	if err := ReadEdges(ef, g); err != nil {
		return nil, fmt.Errorf("%s: %w", edgesPath, err)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteNodesCSV writes g's nodes in the format ReadNodes accepts
func WriteNodesCSV(w io.Writer, g *model.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Place Name", "Latitude", "Longitude"}); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		err := cw.Write([]string{
			n.Name,
			strconv.FormatFloat(n.Lat, 'f', -1, 64),
			strconv.FormatFloat(n.Lon, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgesCSV writes edges in the format ReadEdges accepts
func WriteEdgesCSV(w io.Writer, edges []model.Edge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colFrom, colTo, colRoadType, colDistance, colOneWay}); err != nil {
		return err
	}
	for _, e := range edges {
		err := cw.Write([]string{
			e.From,
			e.To,
			string(e.RoadType),
			strconv.FormatFloat(e.Distance, 'f', -1, 64),
			strconv.FormatBool(e.OneWay),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
