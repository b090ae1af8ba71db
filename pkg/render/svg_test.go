package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ritzau/route-viewer/pkg/model"
)

func TestLetter(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "A"},
		{9, "J"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		if got := Letter(tt.in); got != tt.want {
			t.Errorf("Letter(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLabelScheme(t *testing.T) {
	if s, err := ParseLabelScheme(""); err != nil || s != LabelNames {
		t.Errorf("empty scheme = %q, %v", s, err)
	}
	if s, err := ParseLabelScheme("Letters"); err != nil || s != LabelLetters {
		t.Errorf("Letters = %q, %v", s, err)
	}
	if _, err := ParseLabelScheme("emoji"); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

func triangle() *model.Graph {
	g := model.NewGraph()
	g.AddNode("Home & Co", 10, 10)
	g.AddNode("Work", 10.1, 10.2)
	g.AddNode("Gym", 9.9, 10.3)
	g.AddEdge(model.Edge{From: "Home & Co", To: "Work", Distance: 24})
	g.AddEdge(model.Edge{From: "Work", To: "Gym", Distance: 24})
	g.AddEdge(model.Edge{From: "Home & Co", To: "Gym", Distance: 33, Closed: true})
	return g
}

func render(t *testing.T, g *model.Graph, overlays []Overlay, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := SVG(&buf, g, overlays, opts); err != nil {
		t.Fatalf("SVG() error = %v", err)
	}
	return buf.String()
}

func TestSVGBaseGraph(t *testing.T) {
	out := render(t, triangle(), nil, DefaultOptions())

	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Fatalf("not an svg document: %q", out[:40])
	}
	if n := strings.Count(out, "<circle "); n != 3 {
		t.Errorf("circles = %d, want 3", n)
	}
	if n := strings.Count(out, `stroke="`+ColorEdge+`"`); n != 2 {
		t.Errorf("open edges = %d, want 2", n)
	}
	if !strings.Contains(out, `stroke-dasharray="4 4"`) {
		t.Error("closed edge should be dashed")
	}
	if !strings.Contains(out, "Home &amp; Co") {
		t.Error("labels must be escaped")
	}
	if strings.Contains(out, "<rect x=\"10\"") {
		t.Error("legend drawn without overlays")
	}
	if strings.Contains(out, ColorPathNode) {
		t.Error("no node should be highlighted")
	}
}

func TestSVGOverlays(t *testing.T) {
	overlays := []Overlay{
		{Metric: model.MetricDistance, Path: []string{"Home & Co", "Work", "Gym"}, Cost: 48},
		OverlayOf(&model.PathResult{Metric: model.MetricFuel, Path: []string{"Work", "Gym"}, Cost: 1.44}),
	}
	out := render(t, triangle(), overlays, DefaultOptions())

	// Two distance segments plus the legend swatch
	if n := strings.Count(out, `stroke="`+MetricColor(model.MetricDistance)+`"`); n != 3 {
		t.Errorf("distance strokes = %d, want 3", n)
	}
	if n := strings.Count(out, `stroke="`+MetricColor(model.MetricFuel)+`"`); n != 2 {
		t.Errorf("fuel strokes = %d, want 2", n)
	}
	if n := strings.Count(out, `fill="`+ColorPathNode+`"`); n != 3 {
		t.Errorf("highlighted nodes = %d, want 3", n)
	}
	for _, want := range []string{"distance: 48.00 km", "fuel: 1.44 L"} {
		if !strings.Contains(out, want) {
			t.Errorf("legend missing %q", want)
		}
	}
}

func TestSVGLetterLabels(t *testing.T) {
	opts := DefaultOptions()
	opts.Labels = LabelLetters
	out := render(t, triangle(), nil, opts)

	for _, want := range []string{">A</text>", ">B</text>", ">C</text>"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing label %q", want)
		}
	}
	if strings.Contains(out, "Work") {
		t.Error("letter scheme should not print names")
	}
}

func TestSVGSinglePoint(t *testing.T) {
	g := model.NewGraph()
	g.AddNode("Only", 1, 1)
	out := render(t, g, nil, Options{Width: 200, Height: 100})

	if !strings.Contains(out, `cx="100.0" cy="50.0"`) {
		t.Errorf("single node should be centred: %s", out)
	}
}
