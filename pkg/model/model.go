package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors shared by the routing, storage and web layers.
var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrSameNode      = errors.New("start and goal nodes must be different")
	ErrNoPath        = errors.New("path not found")
	ErrInvalidGraph  = errors.New("invalid graph")
)

// RoadType classifies an edge and selects its travel profile
type RoadType string

const (
	RoadHighway     RoadType = "highway"
	RoadExpressway  RoadType = "expressway"
	RoadStreet      RoadType = "street"
	RoadRural       RoadType = "rural"
	RoadMountain    RoadType = "mountain"
	RoadOffroad     RoadType = "offroad"
	RoadCityTraffic RoadType = "city_traffic"
	RoadDirt        RoadType = "dirt_road"
)

// DefaultRoadType is used for edges that carry no road type
const DefaultRoadType = RoadStreet

// Profile describes how fast and how fuel-hungry travel on a road type is
type Profile struct {
	SpeedKmh    float64 `json:"speedKmh"`
	LitresPerKm float64 `json:"litresPerKm"`
}

var profiles = map[RoadType]Profile{
	RoadHighway:     {SpeedKmh: 90, LitresPerKm: 0.060},
	RoadExpressway:  {SpeedKmh: 100, LitresPerKm: 0.065},
	RoadStreet:      {SpeedKmh: 40, LitresPerKm: 0.080},
	RoadRural:       {SpeedKmh: 60, LitresPerKm: 0.070},
	RoadMountain:    {SpeedKmh: 35, LitresPerKm: 0.110},
	RoadOffroad:     {SpeedKmh: 25, LitresPerKm: 0.140},
	RoadCityTraffic: {SpeedKmh: 20, LitresPerKm: 0.100},
	RoadDirt:        {SpeedKmh: 30, LitresPerKm: 0.120},
}

// RoadTypes returns all known road types in a stable order
func RoadTypes() []RoadType {
	return []RoadType{
		RoadHighway, RoadStreet, RoadRural, RoadMountain,
		RoadOffroad, RoadExpressway, RoadCityTraffic, RoadDirt,
	}
}

// ParseRoadType normalises s; empty input maps to DefaultRoadType
func ParseRoadType(s string) (RoadType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRoadType, nil
	}
	rt := RoadType(s)
	if _, ok := profiles[rt]; !ok {
		return "", fmt.Errorf("unknown road type %q", s)
	}
	return rt, nil
}

// Profile returns the travel profile, falling back to the default road type
func (r RoadType) Profile() Profile {
	if p, ok := profiles[r]; ok {
		return p
	}
	return profiles[DefaultRoadType]
}

// BestProfile returns the fastest speed and lowest fuel rate over all road types.
// Heuristics use it to stay admissible.
func BestProfile() Profile {
	best := Profile{SpeedKmh: 0, LitresPerKm: math.Inf(1)}
	for _, p := range profiles {
		best.SpeedKmh = math.Max(best.SpeedKmh, p.SpeedKmh)
		best.LitresPerKm = math.Min(best.LitresPerKm, p.LitresPerKm)
	}
	return best
}

// Metric is the cost dimension a path is optimised for
type Metric string

const (
	MetricDistance Metric = "distance" // kilometres
	MetricTime     Metric = "time"     // minutes
	MetricFuel     Metric = "fuel"     // litres
)

// Metrics lists every metric in display order
func Metrics() []Metric {
	return []Metric{MetricDistance, MetricTime, MetricFuel}
}

// ParseMetric parses a metric name case-insensitively
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricDistance, MetricTime, MetricFuel:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Cost converts a road segment into the metric's unit
func (m Metric) Cost(km float64, rt RoadType) float64 {
	p := rt.Profile()
	switch m {
	case MetricTime:
		return km / p.SpeedKmh * 60
	case MetricFuel:
		return km * p.LitresPerKm
	default:
		return km
	}
}

// Unit returns the display unit of the metric
func (m Metric) Unit() string {
	switch m {
	case MetricTime:
		return "min"
	case MetricFuel:
		return "L"
	default:
		return "km"
	}
}

// Node is a point in the road network
type Node struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Edge connects two nodes by name. Edges are undirected unless OneWay is set.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	RoadType RoadType `json:"road_type"`
	Distance float64  `json:"distance_km"`
	Closed   bool     `json:"closed,omitempty"`
	OneWay   bool     `json:"one_way,omitempty"`
}

// Key identifies the edge independent of direction for undirected edges
func (e Edge) Key() [2]string {
	if e.OneWay || e.From < e.To {
		return [2]string{e.From, e.To}
	}
	return [2]string{e.To, e.From}
}

// Connects reports whether the edge joins a and b in either direction
func (e Edge) Connects(a, b string) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// PathResult is the outcome of a single shortest-path query
type PathResult struct {
	Path     []string `json:"path"`
	Metric   Metric   `json:"metric"`
	Cost     float64  `json:"cost"`
	Distance float64  `json:"distance"`
	Time     float64  `json:"time"`
	Fuel     float64  `json:"fuel"`
	Expanded int      `json:"expanded"`
}

// Round2 rounds to two decimals, the precision reported to clients
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
