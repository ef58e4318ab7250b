// Package grid snaps points and bounds onto a square grid and
// computes the alignment guides shown while dragging.
package grid

import (
	"math"

	"mural/internal/geo"
)

// DefaultSize is the document default grid cell size in world units.
const DefaultSize = 20

// LineKind distinguishes guide orientations.
type LineKind int

const (
	Vertical LineKind = iota
	Horizontal
)

// Line is an alignment guide at a world-space position. Edge guides
// come from bounds edges, non-edge guides from centers.
type Line struct {
	Kind     LineKind
	Position float64
	IsEdge   bool
}

// Aligner snaps geometry to a grid of the given cell size.
type Aligner struct {
	Size float64
}

// NewAligner returns an aligner for the given cell size, falling back
// to DefaultSize when size is not positive.
func NewAligner(size float64) Aligner {
	if size <= 0 {
		size = DefaultSize
	}
	return Aligner{Size: size}
}

// Snap rounds a single coordinate to the nearest grid multiple.
func (a Aligner) Snap(v float64) float64 {
	return math.Round(v/a.Size) * a.Size
}

// SnapPoint rounds each coordinate to the nearest grid multiple.
func (a Aligner) SnapPoint(p geo.Point) geo.Point {
	return geo.Point{X: a.Snap(p.X), Y: a.Snap(p.Y)}
}

// SnapBounds snaps the top-left and bottom-right corners
// independently and rebuilds width/height from the snapped corners,
// clamped to at least one grid cell. Both edges land exactly on grid
// lines; the snapped width may change non-linearly relative to the
// unsnapped width because each corner rounds on its own.
func (a Aligner) SnapBounds(b geo.Bounds) geo.Bounds {
	tl := a.SnapPoint(geo.Point{X: b.X, Y: b.Y})
	br := a.SnapPoint(geo.Point{X: b.X + b.Width, Y: b.Y + b.Height})
	return geo.Bounds{
		X:      tl.X,
		Y:      tl.Y,
		Width:  math.Max(a.Size, br.X-tl.X),
		Height: math.Max(a.Size, br.Y-tl.Y),
	}
}

// IsAligned reports whether every corner of b is within one unit of
// its snapped position.
func (a Aligner) IsAligned(b geo.Bounds) bool {
	const tolerance = 1.0
	corners := []geo.Point{
		{X: b.X, Y: b.Y},
		{X: b.X + b.Width, Y: b.Y},
		{X: b.X, Y: b.Y + b.Height},
		{X: b.X + b.Width, Y: b.Y + b.Height},
	}
	for _, c := range corners {
		s := a.SnapPoint(c)
		if math.Abs(c.X-s.X) > tolerance || math.Abs(c.Y-s.Y) > tolerance {
			return false
		}
	}
	return true
}

// SnapLines returns the left/center/right vertical and
// top/middle/bottom horizontal guide lines of b.
func (a Aligner) SnapLines(b geo.Bounds) []Line {
	return []Line{
		{Kind: Vertical, Position: b.X, IsEdge: true},
		{Kind: Vertical, Position: b.X + b.Width/2, IsEdge: false},
		{Kind: Vertical, Position: b.X + b.Width, IsEdge: true},
		{Kind: Horizontal, Position: b.Y, IsEdge: true},
		{Kind: Horizontal, Position: b.Y + b.Height/2, IsEdge: false},
		{Kind: Horizontal, Position: b.Y + b.Height, IsEdge: true},
	}
}

// NearestGridLines returns guides for grid lines within threshold of
// the point, if any.
func (a Aligner) NearestGridLines(p geo.Point, threshold float64) []Line {
	var lines []Line
	vx := a.Snap(p.X)
	if math.Abs(p.X-vx) <= threshold {
		lines = append(lines, Line{Kind: Vertical, Position: vx, IsEdge: true})
	}
	hy := a.Snap(p.Y)
	if math.Abs(p.Y-hy) <= threshold {
		lines = append(lines, Line{Kind: Horizontal, Position: hy, IsEdge: true})
	}
	return lines
}

// SmartSnapThreshold is the default positional delta, in world units,
// under which a snap candidate wins during a drag.
const SmartSnapThreshold = 10

// SmartSnap picks the best snap candidate for bounds being dragged:
// grid alignment, or edge alignment against a sibling, whichever has
// the smaller positional delta under the threshold. Ties favor grid.
func (a Aligner) SmartSnap(current geo.Bounds, others []geo.Bounds, threshold float64) (geo.Bounds, []Line) {
	best := current
	var lines []Line

	gridAligned := a.SnapBounds(current)
	gridDist := boundsDistance(current, gridAligned)
	if gridDist <= threshold {
		best = gridAligned
		lines = a.SnapLines(gridAligned)
	}

	for _, other := range others {
		aligned := alignTo(current, other)
		d := boundsDistance(current, aligned)
		if d < gridDist && d <= threshold {
			best = aligned
			lines = a.SnapLines(aligned)
		}
	}
	return best, lines
}

func boundsDistance(a, b geo.Bounds) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dw := a.Width - b.Width
	dh := a.Height - b.Height
	return math.Sqrt(dx*dx + dy*dy + dw*dw + dh*dh)
}

// alignTo shifts b so its nearest edges line up with target's edges.
func alignTo(b, target geo.Bounds) geo.Bounds {
	out := b
	if math.Abs(b.X-target.X) < math.Abs(b.X-(target.X+target.Width)) {
		out.X = target.X
	} else if math.Abs(b.X+b.Width-(target.X+target.Width)) < 10 {
		out.X = target.X + target.Width - b.Width
	}
	if math.Abs(b.Y-target.Y) < math.Abs(b.Y-(target.Y+target.Height)) {
		out.Y = target.Y
	} else if math.Abs(b.Y+b.Height-(target.Y+target.Height)) < 10 {
		out.Y = target.Y + target.Height - b.Height
	}
	return out
}
