package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mural/internal/doc"
	"mural/internal/geo"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")).
			Background(lipgloss.Color("150"))
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))
)

// View renders the canvas as a rune grid plus one status line, in the
// same rows-of-strings shape a terminal wants.
func (m Model) View() string {
	if m.width < 1 || m.height < 1 {
		return ""
	}
	if m.mode == ModeHelp {
		return m.helpView()
	}
	if m.mode == ModeFileOpen {
		return m.fileOpenView()
	}

	rows := m.renderCanvas()
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) renderCanvas() [][]rune {
	w, h := m.width, m.canvasRows()
	rows := make([][]rune, h)
	for y := range rows {
		rows[y] = make([]rune, w)
		for x := range rows[y] {
			rows[y][x] = ' '
		}
	}

	cam := m.store.Camera()
	if m.store.SnapToGrid() {
		m.drawGridDots(rows, cam)
	}
	for _, c := range m.store.VisibleCards() {
		m.drawCard(rows, c, cam)
	}
	if box, ok := m.store.SelectionBox(); ok {
		m.drawMarquee(rows, box)
	}
	return rows
}

// drawGridDots marks visible grid intersections. Skipped when cells
// would be denser than the glyph grid can show.
func (m Model) drawGridDots(rows [][]rune, cam geo.Camera) {
	step := m.store.GridSize() * cam.Zoom
	if step < cellWidthPx {
		return
	}
	w, h := m.viewportPx()
	world := geo.ViewportBounds(cam, w, h)
	size := m.store.GridSize()
	startX := float64(int(world.X/size)) * size
	startY := float64(int(world.Y/size)) * size
	for wy := startY; wy < world.Y+world.Height+size; wy += size {
		for wx := startX; wx < world.X+world.Width+size; wx += size {
			cx, cy := screenToCell(geo.WorldToScreen(geo.Point{X: wx, Y: wy}, cam))
			put(rows, cx, cy, '·')
		}
	}
}

func (m Model) drawCard(rows [][]rune, c doc.Card, cam geo.Camera) {
	b := geo.WorldBoundsToScreen(c.Bounds(), cam)
	x0, y0 := screenToCell(geo.Point{X: b.X, Y: b.Y})
	x1, y1 := screenToCell(geo.Point{X: b.X + b.Width, Y: b.Y + b.Height})
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	selected := m.store.IsSelected(c.ID)
	hovered := m.store.HoveredID() == c.ID
	tl, tr, bl, br, hz, vt := borderRunes(selected, hovered)

	for x := x0; x <= x1; x++ {
		put(rows, x, y0, hz)
		put(rows, x, y1, hz)
	}
	for y := y0; y <= y1; y++ {
		put(rows, x0, y, vt)
		put(rows, x1, y, vt)
	}
	put(rows, x0, y0, tl)
	put(rows, x1, y0, tr)
	put(rows, x0, y1, bl)
	put(rows, x1, y1, br)

	// interior: clear, then clipped text lines
	for y := y0 + 1; y < y1; y++ {
		for x := x0 + 1; x < x1; x++ {
			put(rows, x, y, ' ')
		}
	}
	innerW := x1 - x0 - 1
	if innerW > 0 {
		lines := cardLines(c, innerW)
		for i, line := range lines {
			y := y0 + 1 + i
			if y >= y1 {
				break
			}
			for j, r := range []rune(line) {
				if j >= innerW {
					break
				}
				put(rows, x0+1+j, y, r)
			}
		}
	}

	if selected {
		// handle markers for the mouse resize affordance
		put(rows, x0, y0, '◆')
		put(rows, x1, y0, '◆')
		put(rows, x0, y1, '◆')
		put(rows, x1, y1, '◆')
	}

	if m.streaming[c.ID] != 0 {
		put(rows, x1-1, y0, '~')
	}
}

func borderRunes(selected, hovered bool) (tl, tr, bl, br, hz, vt rune) {
	switch {
	case selected:
		return '╔', '╗', '╚', '╝', '═', '║'
	case hovered:
		return '┏', '┓', '┗', '┛', '━', '┃'
	default:
		return '┌', '┐', '└', '┘', '─', '│'
	}
}

// cardLines is the text shown inside a card: a type marker, then the
// title or content word-wrapped to the card's interior width.
func cardLines(c doc.Card, width int) []string {
	var header, body string
	switch {
	case c.Text != nil:
		body = c.Text.Content
	case c.Rich != nil:
		header = c.Rich.Title
		body = c.Rich.BodyHTML
	case c.AI != nil:
		header = "AI: " + c.AI.Title
		body = c.AI.BodyMarkdown
	case c.Figure != nil:
		header = "[figure]"
		body = c.Figure.Src
	case c.File != nil:
		header = fmt.Sprintf("[%s]", c.Type)
		body = c.File.Src
	}
	var lines []string
	if header != "" {
		lines = append(lines, truncate(header, width))
	}
	for _, para := range strings.Split(body, "\n") {
		lines = append(lines, wrap(para, width)...)
	}
	return lines
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width < 1 {
		return ""
	}
	return string(r[:width-1]) + "…"
}

func wrap(s string, width int) []string {
	if width < 1 {
		return nil
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	return append(lines, line)
}

func (m Model) drawMarquee(rows [][]rune, box geo.Bounds) {
	x0, y0 := screenToCell(geo.Point{X: box.X, Y: box.Y})
	x1, y1 := screenToCell(geo.Point{X: box.X + box.Width, Y: box.Y + box.Height})
	for x := x0; x <= x1; x++ {
		put(rows, x, y0, '·')
		put(rows, x, y1, '·')
	}
	for y := y0; y <= y1; y++ {
		put(rows, x0, y, '·')
		put(rows, x1, y, '·')
	}
}

func put(rows [][]rune, x, y int, r rune) {
	if y < 0 || y >= len(rows) || x < 0 || x >= len(rows[y]) {
		return
	}
	rows[y][x] = r
}

func (m Model) statusLine() string {
	switch m.mode {
	case ModeEditing:
		return promptStyle.Render("edit: ") + m.input.View()
	case ModeFilePrompt:
		label := "save as: "
		if m.fileOp == FileOpExportPNG {
			label = "export png: "
		}
		return promptStyle.Render(label) + m.input.View()
	case ModeAIPrompt:
		return promptStyle.Render("prompt: ") + m.input.View()
	case ModeConfirmQuit:
		return promptStyle.Render("unsaved changes, quit anyway? (y/n)")
	}

	d := m.store.Document()
	cam := m.store.Camera()
	dirty := ""
	if m.Dirty() {
		dirty = "*"
	}
	name := "untitled"
	if m.filename != "" {
		name = m.filename
	}
	left := fmt.Sprintf(" %s%s | %d cards | %d selected | zoom %.0f%% | %s",
		name, dirty, len(d.Cards), len(m.store.SelectedIDs()), cam.Zoom*100, m.status)
	if len(left) > m.width {
		left = left[:m.width]
	}
	return statusStyle.Width(m.width).Render(left)
}

func (m Model) fileOpenView() string {
	var b strings.Builder
	b.WriteString("Open document:\n")
	b.WriteString(strings.Repeat("─", max(1, m.width)))
	b.WriteString("\n")
	for i, f := range m.fileList {
		if i == m.fileSelected {
			b.WriteString("> " + f + " <\n")
		} else {
			b.WriteString("  " + f + "\n")
		}
	}
	b.WriteString("\nenter to open, esc to cancel")
	return b.String()
}

func (m Model) helpView() string {
	help := `mural

  mouse          drag cards, shift-drag for marquee select,
                 wheel pans, ctrl-wheel zooms at cursor,
                 drag ◆ corners to resize
  space          toggle pan mode
  t T i D v      place text / card / figure / pdf / video
  e or enter     edit selected card
  x d a          delete / duplicate / select all
  y p P          copy / paste / paste system clipboard
  u U            undo / redo
  g              toggle grid snap
  z Z 0 + -      fit all / fit selection / reset / zoom
  1-6            align left right top bottom centers
  7 8 9          distribute h / distribute v / arrange grid
  A R ctrl+x     ask model / research card / cancel
  s o E          save / open / export png
  q              quit

press any key to return`
	return help
}
