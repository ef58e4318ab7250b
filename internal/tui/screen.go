package tui

import "mural/internal/geo"

// Terminal cells are not square, so the canvas works in virtual
// pixels and maps to cells only at the rendering and mouse
// boundaries. One cell is 10x20 virtual pixels, roughly matching a
// monospace glyph's aspect ratio.
const (
	cellWidthPx  = 10.0
	cellHeightPx = 20.0
)

// statusLines is the chrome below the canvas.
const statusLines = 1

func cellToScreen(x, y int) geo.Point {
	return geo.Point{
		X: (float64(x) + 0.5) * cellWidthPx,
		Y: (float64(y) + 0.5) * cellHeightPx,
	}
}

func screenToCell(p geo.Point) (int, int) {
	return int(p.X / cellWidthPx), int(p.Y / cellHeightPx)
}

func (m Model) canvasRows() int {
	rows := m.height - statusLines
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m Model) viewportPx() (float64, float64) {
	return float64(m.width) * cellWidthPx, float64(m.canvasRows()) * cellHeightPx
}
