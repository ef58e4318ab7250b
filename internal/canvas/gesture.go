package canvas

import (
	"mural/internal/doc"
	"mural/internal/geo"
)

// DragThreshold is the screen-space distance the pointer must travel
// before a press commits to a drag, pan or marquee. Below it the
// press resolves as a click.
const DragThreshold = 5

// Resize minimums. Gesture handles enforce a larger floor so a card
// never shrinks below a usable hit target mid-resize; the inline path
// only enforces the card minimum.
const (
	HandleMinWidth  = 120
	HandleMinHeight = 80
	InlineMinSize   = doc.MinCardSize
)

// State names the gesture machine's states.
type State int

const (
	StateIdle State = iota
	StatePanning
	StateDraggingCard
	StateDrawingSelection
	StateResizing
)

// Handle names a resize handle position.
type Handle int

const (
	HandleNone Handle = iota
	HandleN
	HandleS
	HandleE
	HandleW
	HandleNW
	HandleNE
	HandleSW
	HandleSE
)

func (h Handle) north() bool { return h == HandleN || h == HandleNW || h == HandleNE }
func (h Handle) south() bool { return h == HandleS || h == HandleSW || h == HandleSE }
func (h Handle) east() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) west() bool  { return h == HandleW || h == HandleNW || h == HandleSW }

// Button is the pressed pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers carries the keyboard modifiers active during a pointer
// event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

// ResizeMode selects which minimum-size floor a resize gesture uses.
type ResizeMode int

const (
	ResizeHandles ResizeMode = iota // dedicated selection handles
	ResizeInline                    // corner affordance on the card itself
)

type gestureState struct {
	state  State
	button Button

	downScreen geo.Point
	lastScreen geo.Point
	downWorld  geo.Point
	committed  bool // pointer travelled past DragThreshold

	// drag
	dragOrigins map[string]geo.Bounds
	collapseTo  string // solo-select this card if the press ends as a click

	// resize
	resizeID     string
	resizeHandle Handle
	resizeMode   ResizeMode
	resizeOrigin geo.Bounds

	// marquee
	marqueeAdditive bool
	marqueeBase     []string

	spaceHeld bool
	dirty     bool // a document mutation happened during this gesture
}

// GestureState returns the machine's current state.
func (s *Store) GestureState() State { return s.gesture.state }

// Captured reports whether a gesture is in flight and pointer events
// should keep routing to the store.
func (s *Store) Captured() bool { return s.gesture.state != StateIdle }

// SetSpaceHeld tracks the space bar; a held space turns the next
// left-button press into a pan regardless of what is under it.
func (s *Store) SetSpaceHeld(held bool) { s.gesture.spaceHeld = held }

// SelectionBox returns the in-flight marquee rectangle in screen
// space, normalized, and whether one is being drawn.
func (s *Store) SelectionBox() (geo.Bounds, bool) {
	g := &s.gesture
	if g.state != StateDrawingSelection {
		return geo.Bounds{}, false
	}
	box := geo.Normalize(geo.Bounds{
		X:      g.downScreen.X,
		Y:      g.downScreen.Y,
		Width:  g.lastScreen.X - g.downScreen.X,
		Height: g.lastScreen.Y - g.downScreen.Y,
	})
	return box, true
}

// PointerDown feeds a button press into the gesture machine. The
// press resolves in a fixed order: pan intent first, then creation
// tools, then card hits, then empty space.
func (s *Store) PointerDown(screen geo.Point, button Button, mods Modifiers) {
	g := &s.gesture
	if g.state != StateIdle {
		return
	}
	world := geo.ScreenToWorld(screen, s.camera)
	*g = gestureState{
		state:      StateIdle,
		button:     button,
		downScreen: screen,
		lastScreen: screen,
		downWorld:  world,
		spaceHeld:  g.spaceHeld,
	}

	if g.spaceHeld || button == ButtonMiddle {
		g.state = StatePanning
		g.committed = true
		return
	}
	if button != ButtonLeft {
		return
	}

	hit, hitOK := s.document.TopCardAt(world)

	if s.tool != ToolSelect {
		// creation tools place on empty space only; a press on an
		// existing card is ignored
		if !hitOK {
			s.createCardAt(world)
		}
		return
	}

	if hitOK {
		if mods.Shift {
			s.SelectCard(hit.ID, true)
			return
		}
		if !s.IsSelected(hit.ID) {
			s.SelectCard(hit.ID, false)
		} else if len(s.selected) > 1 {
			// keep the group for a potential multi-drag; collapse to
			// this card only if the press ends as a plain click
			g.collapseTo = hit.ID
		}
		g.state = StateDraggingCard
		g.dragOrigins = make(map[string]geo.Bounds, len(s.selected))
		for _, c := range s.selectedCards() {
			g.dragOrigins[c.ID] = c.Bounds()
		}
		return
	}

	if mods.Shift {
		g.state = StateDrawingSelection
		g.marqueeAdditive = true
		g.marqueeBase = s.SelectedIDs()
		return
	}

	s.ClearSelection()
	g.state = StatePanning
}

// PointerMove advances the active gesture. Drags below DragThreshold
// are held back so a sloppy click does not nudge anything.
func (s *Store) PointerMove(screen geo.Point) {
	g := &s.gesture
	if g.state == StateIdle {
		if hit, ok := s.document.TopCardAt(geo.ScreenToWorld(screen, s.camera)); ok {
			s.hovered = hit.ID
		} else {
			s.hovered = ""
		}
		return
	}

	if !g.committed {
		if geo.Distance(screen, g.downScreen) < DragThreshold {
			g.lastScreen = screen
			return
		}
		g.committed = true
		g.collapseTo = ""
	}

	switch g.state {
	case StatePanning:
		s.Pan(screen.X-g.lastScreen.X, screen.Y-g.lastScreen.Y)
	case StateDraggingCard:
		s.moveDragged(screen)
	case StateResizing:
		s.applyResize(screen)
	case StateDrawingSelection:
		// rectangle is derived from downScreen/lastScreen at render time
	}
	g.lastScreen = screen
}

// PointerUp completes the gesture: drags snap and push one history
// snapshot, marquees resolve the selection, clicks resolve deferred
// selection collapse.
func (s *Store) PointerUp(screen geo.Point) {
	g := &s.gesture
	if g.state == StateIdle {
		return
	}
	switch g.state {
	case StateDraggingCard:
		if g.committed {
			s.snapDragged()
			if g.dirty {
				s.PushHistory()
			}
		} else if g.collapseTo != "" {
			s.SelectCard(g.collapseTo, false)
		}
	case StateResizing:
		if g.dirty {
			s.PushHistory()
		}
	case StateDrawingSelection:
		g.lastScreen = screen
		s.resolveMarquee()
	}
	space := g.spaceHeld
	*g = gestureState{spaceHeld: space}
}

// Cancel aborts the in-flight gesture, restoring dragged or resized
// cards to their gesture-start bounds.
func (s *Store) Cancel() {
	g := &s.gesture
	switch g.state {
	case StateDraggingCard:
		for id, b := range g.dragOrigins {
			s.UpdateCard(id, doc.BoundsPatch(b))
		}
	case StateResizing:
		s.UpdateCard(g.resizeID, doc.BoundsPatch(g.resizeOrigin))
	}
	space := g.spaceHeld
	*g = gestureState{spaceHeld: space}
}

// Wheel routes scroll input: plain scroll pans, ctrl-scroll zooms
// anchored at the cursor.
func (s *Store) Wheel(screen geo.Point, deltaX, deltaY float64, ctrl bool) {
	if ctrl {
		factor := 1.1
		if deltaY > 0 {
			factor = 0.9
		}
		s.ZoomAt(screen, factor)
		return
	}
	s.Pan(-deltaX, -deltaY)
}

// BeginResize starts a resize gesture on a card from the given handle.
// The caller resolves handle hit-testing; the machine owns the rest.
func (s *Store) BeginResize(id string, handle Handle, screen geo.Point, mode ResizeMode) {
	c, ok := s.document.FindCard(id)
	if !ok || handle == HandleNone {
		return
	}
	s.SelectCard(id, false)
	s.gesture = gestureState{
		state:        StateResizing,
		button:       ButtonLeft,
		downScreen:   screen,
		lastScreen:   screen,
		downWorld:    geo.ScreenToWorld(screen, s.camera),
		committed:    true,
		resizeID:     id,
		resizeHandle: handle,
		resizeMode:   mode,
		resizeOrigin: c.Bounds(),
		spaceHeld:    s.gesture.spaceHeld,
	}
}

func (s *Store) moveDragged(screen geo.Point) {
	g := &s.gesture
	// screen delta divided by zoom, so cards track the pointer exactly
	// at every zoom level
	dx := (screen.X - g.downScreen.X) / s.camera.Zoom
	dy := (screen.Y - g.downScreen.Y) / s.camera.Zoom
	for id, origin := range g.dragOrigins {
		s.UpdateCard(id, doc.PositionPatch(origin.X+dx, origin.Y+dy))
	}
	g.dirty = true
}

// snapDragged aligns each dragged card to its grid on release. Grid
// alignment runs on gesture completion only, never on move frames.
func (s *Store) snapDragged() {
	for id := range s.gesture.dragOrigins {
		c, ok := s.document.FindCard(id)
		if !ok {
			continue
		}
		if !s.snapToGrid || !c.SnapToGrid {
			continue
		}
		snapped := s.aligner(c).SnapBounds(c.Bounds())
		s.UpdateCard(id, doc.BoundsPatch(snapped))
	}
}

func (s *Store) applyResize(screen geo.Point) {
	g := &s.gesture
	c, ok := s.document.FindCard(g.resizeID)
	if !ok {
		return
	}
	world := geo.ScreenToWorld(screen, s.camera)
	dx := world.X - g.downWorld.X
	dy := world.Y - g.downWorld.Y

	minW, minH := float64(HandleMinWidth), float64(HandleMinHeight)
	if g.resizeMode == ResizeInline {
		minW, minH = InlineMinSize, InlineMinSize
	}

	b := resizeBounds(g.resizeOrigin, g.resizeHandle, dx, dy, minW, minH, &c, s.snapToGrid, s.aligner(c).Snap)
	s.UpdateCard(g.resizeID, doc.BoundsPatch(b))
	g.dirty = true
}

// resizeBounds computes the new bounds for a resize gesture: raw edge
// deltas, then the minimum clamp, then aspect correction, then grid
// snap, with the opposite edge anchored throughout. Aspect correction
// runs after the clamp so the locked ratio holds even at the floor.
func resizeBounds(origin geo.Bounds, handle Handle, dx, dy, minW, minH float64, c *doc.Card, storeSnap bool, snap func(float64) float64) geo.Bounds {
	w, h := origin.Width, origin.Height
	if handle.east() {
		w = origin.Width + dx
	}
	if handle.west() {
		w = origin.Width - dx
	}
	if handle.south() {
		h = origin.Height + dy
	}
	if handle.north() {
		h = origin.Height - dy
	}

	if w < minW {
		w = minW
	}
	if h < minH {
		h = minH
	}

	if c.LockAspectRatio {
		ratio := c.AspectRatio
		if ratio <= 0 && origin.Height > 0 {
			ratio = origin.Width / origin.Height
		}
		if ratio > 0 {
			widthDriven := handle.east() || handle.west()
			heightDriven := handle.north() || handle.south()
			if widthDriven && heightDriven {
				// corner handle: the axis the pointer moved further on
				// wins
				widthDriven = abs(dx) >= abs(dy)
				heightDriven = !widthDriven
			}
			// the driven axis carries the other axis's floor through
			// the ratio so the derived value clears its own minimum
			if widthDriven {
				if w < minH*ratio {
					w = minH * ratio
				}
				h = w / ratio
			} else if heightDriven {
				if h < minW/ratio {
					h = minW / ratio
				}
				w = h * ratio
			}
		}
	}

	if storeSnap && c.SnapToGrid {
		w = snap(w)
		h = snap(h)
	}

	// anchor the edge opposite the handle; leading-edge handles move
	// the origin instead of the far edge
	x, y := origin.X, origin.Y
	if handle.west() {
		x = origin.X + origin.Width - w
	}
	if handle.north() {
		y = origin.Y + origin.Height - h
	}
	return geo.Bounds{X: x, Y: y, Width: w, Height: h}
}

func (s *Store) resolveMarquee() {
	box, ok := s.SelectionBox()
	if !ok {
		return
	}
	world := geo.ScreenBoundsToWorld(box, s.camera)
	var ids []string
	if s.gesture.marqueeAdditive {
		ids = append(ids, s.gesture.marqueeBase...)
	}
	for _, c := range s.document.Cards {
		// full containment only; brushing past a card must not grab it
		if geo.Contains(world, c.Bounds()) && !contains(ids, c.ID) {
			ids = append(ids, c.ID)
		}
	}
	s.SelectCards(ids)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// createCardAt places a default-sized card for the active tool with
// its top-left at the pointer, snapped to the grid when snapping is
// on, then reverts to the select tool.
func (s *Store) createCardAt(world geo.Point) {
	c := defaultCard(s.tool)
	pos := world
	if s.snapToGrid {
		pos = s.aligner(c).SnapPoint(pos)
	}
	c.X = pos.X
	c.Y = pos.Y
	c.SnapToGrid = s.snapToGrid
	c.Z = s.nextZ()
	s.AddCard(c)
	s.tool = ToolSelect
}

func (s *Store) nextZ() int {
	max := 0
	for _, c := range s.document.Cards {
		if c.Z > max {
			max = c.Z
		}
	}
	return max + 1
}

func defaultCard(t Tool) doc.Card {
	switch t {
	case ToolText:
		return doc.Card{Type: doc.TypeText, Width: 220, Height: 120, Text: &doc.TextPayload{}}
	case ToolRichCard:
		return doc.Card{Type: doc.TypeRich, Width: 320, Height: 200, Rich: &doc.RichPayload{Title: "New card"}}
	case ToolFigureCard:
		return doc.Card{Type: doc.TypeFigure, Width: 320, Height: 240, Figure: &doc.FigurePayload{}}
	case ToolPDFCard:
		return doc.Card{Type: doc.TypePDF, Width: 420, Height: 300, File: &doc.FilePayload{}}
	case ToolVideoCard:
		return doc.Card{
			Type: doc.TypeVideo, Width: 480, Height: 270,
			File:            &doc.FilePayload{Provider: "youtube"},
			LockAspectRatio: true, AspectRatio: 16.0 / 9.0,
		}
	default:
		return doc.Card{Type: doc.TypeText, Width: 220, Height: 120, Text: &doc.TextPayload{}}
	}
}
