package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldScreenRoundTrip(t *testing.T) {
	cameras := []Camera{
		{X: 0, Y: 0, Zoom: 1},
		{X: 100, Y: -50, Zoom: 0.1},
		{X: -3.7, Y: 812.25, Zoom: 5},
		{X: 42, Y: 42, Zoom: 1.337},
	}
	points := []Point{
		{X: 0, Y: 0},
		{X: -123.456, Y: 789.01},
		{X: 1e6, Y: -1e6},
		{X: 0.0001, Y: -0.0001},
	}
	for _, cam := range cameras {
		for _, p := range points {
			got := ScreenToWorld(WorldToScreen(p, cam), cam)
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestWorldToScreenScalesAndOffsets(t *testing.T) {
	cam := Camera{X: 100, Y: 50, Zoom: 2}
	got := WorldToScreen(Point{X: 10, Y: 20}, cam)
	assert.Equal(t, Point{X: 120, Y: 90}, got)
}

func TestBoundsTransformRoundTrip(t *testing.T) {
	cam := Camera{X: -30, Y: 70, Zoom: 0.5}
	b := Bounds{X: 15, Y: -25, Width: 130, Height: 77}
	back := ScreenBoundsToWorld(WorldBoundsToScreen(b, cam), cam)
	assert.InDelta(t, b.X, back.X, 1e-9)
	assert.InDelta(t, b.Y, back.Y, 1e-9)
	assert.InDelta(t, b.Width, back.Width, 1e-9)
	assert.InDelta(t, b.Height, back.Height, 1e-9)
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(0.01))
	assert.Equal(t, MaxZoom, ClampZoom(50))
	assert.Equal(t, 1.0, ClampZoom(1))
}

func TestPointInBoundsEdgesInclusive(t *testing.T) {
	b := Bounds{X: 10, Y: 10, Width: 20, Height: 20}
	assert.True(t, PointInBounds(Point{X: 10, Y: 10}, b))
	assert.True(t, PointInBounds(Point{X: 30, Y: 30}, b))
	assert.True(t, PointInBounds(Point{X: 20, Y: 15}, b))
	assert.False(t, PointInBounds(Point{X: 9.999, Y: 10}, b))
	assert.False(t, PointInBounds(Point{X: 30.001, Y: 30}, b))
}

func TestContainsIsFullContainment(t *testing.T) {
	box := Bounds{X: 0, Y: 0, Width: 100, Height: 100}
	assert.True(t, Contains(box, Bounds{X: 10, Y: 10, Width: 50, Height: 50}))
	// half outside: intersects but not contained
	half := Bounds{X: 50, Y: 50, Width: 100, Height: 100}
	assert.True(t, Intersects(box, half))
	assert.False(t, Contains(box, half))
}

func TestUnion(t *testing.T) {
	_, ok := Union(nil)
	require.False(t, ok)

	u, ok := Union([]Bounds{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 50, Y: -20, Width: 10, Height: 10},
	})
	require.True(t, ok)
	assert.Equal(t, Bounds{X: 0, Y: -20, Width: 60, Height: 30}, u)
}

func TestNormalize(t *testing.T) {
	got := Normalize(Bounds{X: 100, Y: 100, Width: -40, Height: -60})
	assert.Equal(t, Bounds{X: 60, Y: 40, Width: 40, Height: 60}, got)
	same := Bounds{X: 1, Y: 2, Width: 3, Height: 4}
	assert.Equal(t, same, Normalize(same))
}

func TestViewportBoundsAndVisible(t *testing.T) {
	cam := Camera{X: 0, Y: 0, Zoom: 2}
	vp := ViewportBounds(cam, 800, 600)
	assert.Equal(t, Bounds{X: 0, Y: 0, Width: 400, Height: 300}, vp)

	assert.True(t, Visible(Bounds{X: 390, Y: 290, Width: 50, Height: 50}, cam, 800, 600))
	assert.False(t, Visible(Bounds{X: 500, Y: 500, Width: 10, Height: 10}, cam, 800, 600))
}
