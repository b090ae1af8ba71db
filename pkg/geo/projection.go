package geo

// DefaultPadding is the margin kept free around the projected graph
const DefaultPadding = 40.0

// XY is a position on the drawing surface, origin top-left
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection maps coordinates inside Bounds linearly onto a canvas of
// Width x Height with Padding on every side. North is up.
type Projection struct {
	Bounds  Bounds
	Width   float64
	Height  float64
	Padding float64
}

// NewProjection fits points onto a width x height canvas
func NewProjection(points []Point, width, height, padding float64) Projection {
	b, _ := BoundsOf(points)
	return Projection{Bounds: b, Width: width, Height: height, Padding: padding}
}

// Project maps p onto the canvas. An axis with zero span (all points share
// that coordinate) is centred.
func (pr Projection) Project(p Point) XY {
	w := pr.Width - 2*pr.Padding
	h := pr.Height - 2*pr.Padding

	x := pr.Width / 2
	if span := pr.Bounds.MaxLon - pr.Bounds.MinLon; span > 0 {
		x = pr.Padding + (p.Lon-pr.Bounds.MinLon)/span*w
	}

	y := pr.Height / 2
	if span := pr.Bounds.MaxLat - pr.Bounds.MinLat; span > 0 {
		y = pr.Padding + (pr.Bounds.MaxLat-p.Lat)/span*h
	}

	return XY{X: x, Y: y}
}

// ProjectAll maps every point in order
func (pr Projection) ProjectAll(points []Point) []XY {
	out := make([]XY, len(points))
	for i, p := range points {
		out[i] = pr.Project(p)
	}
	return out
}
