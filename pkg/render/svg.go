// Package render draws the road network and route overlays as SVG, matching
// what the browser client paints on its canvas.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"text/template"

	"github.com/ritzau/route-viewer/pkg/geo"
	"github.com/ritzau/route-viewer/pkg/model"
)

// Canvas colours shared with the browser client
const (
	ColorEdge     = "#d1d5db"
	ColorClosed   = "#9ca3af"
	ColorNode     = "#1f2937"
	ColorPathNode = "#3b82f6"
	ColorLabel    = "#ffffff"
)

// MetricColor returns the overlay colour of a metric
func MetricColor(m model.Metric) string {
	switch m {
	case model.MetricTime:
		return "#10b981"
	case model.MetricFuel:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

// LabelScheme selects how nodes are labelled
type LabelScheme string

const (
	LabelNames   LabelScheme = "names"
	LabelLetters LabelScheme = "letters" // A, B, ... by node index
)

// ParseLabelScheme maps "" to LabelNames
func ParseLabelScheme(s string) (LabelScheme, error) {
	switch LabelScheme(strings.ToLower(s)) {
	case "", LabelNames:
		return LabelNames, nil
	case LabelLetters:
		return LabelLetters, nil
	}
	return "", fmt.Errorf("unknown label scheme %q", s)
}

// Letter returns the spreadsheet-style letter label of index i:
// 0 is A, 25 is Z, 26 is AA.
func Letter(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}

// Options controls the drawing surface
type Options struct {
	Width   float64
	Height  float64
	Padding float64
	Labels  LabelScheme
}

// DefaultOptions matches the client's 800x600 canvas
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Padding: geo.DefaultPadding, Labels: LabelNames}
}

// Overlay is one highlighted route
type Overlay struct {
	Metric model.Metric
	Path   []string
	Cost   float64
}

// OverlayOf converts a search result into an overlay
func OverlayOf(r *model.PathResult) Overlay {
	return Overlay{Metric: r.Metric, Path: r.Path, Cost: r.Cost}
}

type line struct {
	X1, Y1, X2, Y2 float64
	Color          string
	Width          float64
	Dashed         bool
}

type circle struct {
	X, Y  float64
	Fill  string
	Label string
}

type legendEntry struct {
	Y     float64
	Color string
	Text  string
}

type scene struct {
	Width, Height float64
	Lines         []line
	Circles       []circle
	Legend        []legendEntry
	LegendHeight  float64
}

var funcs = template.FuncMap{
	"f":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"esc": html.EscapeString,
}

var svgTemplate = template.Must(template.New("svg").Funcs(funcs).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{f .Width}}" height="{{f .Height}}" viewBox="0 0 {{f .Width}} {{f .Height}}">
<rect width="100%" height="100%" fill="#ffffff"/>
{{- range .Lines}}
<line x1="{{f .X1}}" y1="{{f .Y1}}" x2="{{f .X2}}" y2="{{f .Y2}}" stroke="{{.Color}}" stroke-width="{{f .Width}}"{{if .Dashed}} stroke-dasharray="4 4"{{end}}/>
{{- end}}
{{- range .Circles}}
<circle cx="{{f .X}}" cy="{{f .Y}}" r="8" fill="{{.Fill}}"/>
<text x="{{f .X}}" y="{{f .Y}}" fill="` + ColorLabel + `" font-family="sans-serif" font-size="12" text-anchor="middle" dominant-baseline="central">{{esc .Label}}</text>
{{- end}}
{{- if .Legend}}
<rect x="10" y="10" width="190" height="{{f .LegendHeight}}" fill="#ffffff" fill-opacity="0.9" stroke="` + ColorEdge + `"/>
{{- range .Legend}}
<line x1="20" y1="{{f .Y}}" x2="40" y2="{{f .Y}}" stroke="{{.Color}}" stroke-width="3"/>
<text x="48" y="{{f .Y}}" fill="` + ColorNode + `" font-family="sans-serif" font-size="12" dominant-baseline="central">{{esc .Text}}</text>
{{- end}}
{{- end}}
</svg>
`))

// SVG draws g with the given route overlays. Closed roads are drawn dashed.
// An edge belongs to an overlay iff its endpoints are consecutive in the
// overlay's path.
func SVG(w io.Writer, g *model.Graph, overlays []Overlay, opts Options) error {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Padding < 0 {
		opts.Padding = def.Padding
	}

	points := make([]geo.Point, len(g.Nodes))
	for i, n := range g.Nodes {
		points[i] = geo.Point{Lat: n.Lat, Lon: n.Lon}
	}
	xy := geo.NewProjection(points, opts.Width, opts.Height, opts.Padding).ProjectAll(points)
	idx := g.Index()

	sc := scene{Width: opts.Width, Height: opts.Height}

	onPath := make(map[string]bool)
	for _, o := range overlays {
		for _, name := range o.Path {
			onPath[name] = true
		}
	}

	for _, e := range g.Edges {
		a, b := xy[idx[e.From]], xy[idx[e.To]]
		l := line{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y, Color: ColorEdge, Width: 1.5}
		if e.Closed {
			l.Color, l.Dashed = ColorClosed, true
		}
		sc.Lines = append(sc.Lines, l)
	}

	// Later overlays are drawn thinner so overlapping routes stay visible
	for i, o := range overlays {
		width := 5 - float64(i)*1.5
		if width < 1.5 {
			width = 1.5
		}
		for j := 1; j < len(o.Path); j++ {
			from, okFrom := idx[o.Path[j-1]]
			to, okTo := idx[o.Path[j]]
			if !okFrom || !okTo {
				continue
			}
			a, b := xy[from], xy[to]
			sc.Lines = append(sc.Lines, line{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y, Color: MetricColor(o.Metric), Width: width})
		}
	}

	for i, n := range g.Nodes {
		c := circle{X: xy[i].X, Y: xy[i].Y, Fill: ColorNode, Label: n.Name}
		if onPath[n.Name] {
			c.Fill = ColorPathNode
		}
		if opts.Labels == LabelLetters {
			c.Label = Letter(i)
		}
		sc.Circles = append(sc.Circles, c)
	}

	for i, o := range overlays {
		sc.Legend = append(sc.Legend, legendEntry{
			Y:     28 + float64(i)*20,
			Color: MetricColor(o.Metric),
			Text:  fmt.Sprintf("%s: %.2f %s", o.Metric, o.Cost, o.Metric.Unit()),
		})
	}
	sc.LegendHeight = 16 + float64(len(overlays))*20

	return svgTemplate.Execute(w, sc)
}
