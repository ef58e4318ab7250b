// Package geo holds the pure coordinate math shared by every
// interactive part of the canvas: world/screen transforms, bounds
// tests and the camera definition. Nothing in here carries state.
package geo

import "math"

// Point is a position in either world or screen space. The two spaces
// are never mixed without an explicit transform call.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is an axis-aligned rectangle in a single coordinate space.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Camera maps world space onto the screen. X and Y are the screen
// offset of the world origin, Zoom is a uniform scale factor.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// WorldToScreen converts a world-space point to screen space.
func WorldToScreen(p Point, cam Camera) Point {
	return Point{
		X: p.X*cam.Zoom + cam.X,
		Y: p.Y*cam.Zoom + cam.Y,
	}
}

// ScreenToWorld converts a screen-space point to world space. It is
// the exact inverse of WorldToScreen for any Zoom > 0.
func ScreenToWorld(p Point, cam Camera) Point {
	return Point{
		X: (p.X - cam.X) / cam.Zoom,
		Y: (p.Y - cam.Y) / cam.Zoom,
	}
}

// WorldBoundsToScreen transforms both corners independently and
// rebuilds width/height from their difference.
func WorldBoundsToScreen(b Bounds, cam Camera) Bounds {
	tl := WorldToScreen(Point{X: b.X, Y: b.Y}, cam)
	br := WorldToScreen(Point{X: b.X + b.Width, Y: b.Y + b.Height}, cam)
	return Bounds{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// ScreenBoundsToWorld is the inverse of WorldBoundsToScreen. Callers
// must never pass a camera with Zoom == 0.
func ScreenBoundsToWorld(b Bounds, cam Camera) Bounds {
	tl := ScreenToWorld(Point{X: b.X, Y: b.Y}, cam)
	br := ScreenToWorld(Point{X: b.X + b.Width, Y: b.Y + b.Height}, cam)
	return Bounds{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// PointInBounds reports whether p lies inside b, edges inclusive.
func PointInBounds(p Point, b Bounds) bool {
	return p.X >= b.X && p.X <= b.X+b.Width &&
		p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Intersects reports whether two bounds overlap.
func Intersects(a, b Bounds) bool {
	return !(a.X+a.Width < b.X || b.X+b.Width < a.X ||
		a.Y+a.Height < b.Y || b.Y+b.Height < a.Y)
}

// Contains reports whether inner lies fully inside outer. This is the
// box-select rule: containment, not intersection.
func Contains(outer, inner Bounds) bool {
	return outer.X <= inner.X && outer.Y <= inner.Y &&
		outer.X+outer.Width >= inner.X+inner.Width &&
		outer.Y+outer.Height >= inner.Y+inner.Height
}

// Union returns the smallest bounds covering all inputs, and false if
// the input is empty.
func Union(all []Bounds) (Bounds, bool) {
	if len(all) == 0 {
		return Bounds{}, false
	}
	minX, minY := all[0].X, all[0].Y
	maxX, maxY := all[0].X+all[0].Width, all[0].Y+all[0].Height
	for _, b := range all[1:] {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.Width)
		maxY = math.Max(maxY, b.Y+b.Height)
	}
	return Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Normalize returns b with non-negative width/height, moving the
// origin as needed. Used for selection boxes dragged in any direction.
func Normalize(b Bounds) Bounds {
	if b.Width < 0 {
		b.X += b.Width
		b.Width = -b.Width
	}
	if b.Height < 0 {
		b.Y += b.Height
		b.Height = -b.Height
	}
	return b
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ClampZoom limits a zoom factor to the camera's legal range.
func ClampZoom(zoom float64) float64 {
	return Clamp(zoom, MinZoom, MaxZoom)
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Lerp interpolates linearly between start and end.
func Lerp(start, end, t float64) float64 {
	return start + (end-start)*t
}

// ViewportBounds inverse-transforms the screen rectangle
// [0,0,width,height] into world space.
func ViewportBounds(cam Camera, width, height float64) Bounds {
	tl := ScreenToWorld(Point{X: 0, Y: 0}, cam)
	br := ScreenToWorld(Point{X: width, Y: height}, cam)
	return Bounds{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// Visible reports whether world bounds b intersect the viewport.
func Visible(b Bounds, cam Camera, viewportWidth, viewportHeight float64) bool {
	return Intersects(b, ViewportBounds(cam, viewportWidth, viewportHeight))
}
