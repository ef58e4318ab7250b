// Package canvas owns the live application state: the document, the
// camera, the selection, and the pointer-gesture state machine that
// turns raw input events into document mutations. It is the single
// writer; rendering layers read from it and call back into its typed
// command API. Everything here runs synchronously on the event loop.
package canvas

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"mural/internal/doc"
	"mural/internal/geo"
	"mural/internal/grid"
	"mural/internal/history"
)

// Tool is the active creation/selection tool.
type Tool int

const (
	ToolSelect Tool = iota
	ToolText
	ToolRichCard
	ToolFigureCard
	ToolPDFCard
	ToolVideoCard
)

// Store is the explicit application-state object. All mutations go
// through its methods; no ambient globals.
type Store struct {
	log zerolog.Logger

	document doc.Document
	camera   geo.Camera
	hist     history.History

	selected []string
	hovered  string
	tool     Tool

	clipboard []doc.Card

	snapToGrid bool
	gridSize   float64

	viewportW float64
	viewportH float64

	gesture gestureState
}

// NewStore wraps a document in a fresh store with history reset to a
// single present snapshot.
func NewStore(d doc.Document, log zerolog.Logger) *Store {
	if d.Camera.Zoom <= 0 {
		d.Camera.Zoom = 1
	}
	return &Store{
		log:        log,
		document:   d,
		camera:     d.Camera,
		hist:       history.New(d),
		tool:       ToolSelect,
		snapToGrid: d.SnapToGrid,
		gridSize:   d.GridSize,
		viewportW:  1280,
		viewportH:  800,
	}
}

// Document returns the live document value.
func (s *Store) Document() doc.Document { return s.document }

// Camera returns the current camera.
func (s *Store) Camera() geo.Camera { return s.camera }

// SelectedIDs returns the selection in selection order.
func (s *Store) SelectedIDs() []string { return append([]string{}, s.selected...) }

// IsSelected reports whether a card id is in the selection set.
func (s *Store) IsSelected(id string) bool { return lo.Contains(s.selected, id) }

// HoveredID returns the currently hovered card id, if any.
func (s *Store) HoveredID() string { return s.hovered }

// SetHovered tracks the card under the pointer for rendering.
func (s *Store) SetHovered(id string) { s.hovered = id }

// Tool returns the active tool.
func (s *Store) Tool() Tool { return s.tool }

// SetTool switches the active tool.
func (s *Store) SetTool(t Tool) { s.tool = t }

// SnapToGrid reports the document-level snap toggle.
func (s *Store) SnapToGrid() bool { return s.snapToGrid }

// SetSnapToGrid flips the document-level snap toggle.
func (s *Store) SetSnapToGrid(on bool) {
	s.snapToGrid = on
	s.document.SnapToGrid = on
}

// GridSize returns the document-level grid cell size.
func (s *Store) GridSize() float64 { return s.gridSize }

// SetGridSize changes the document-level grid cell size.
func (s *Store) SetGridSize(size float64) {
	if size <= 0 {
		return
	}
	s.gridSize = size
	s.document.GridSize = size
}

// SetViewport records the screen size used for culling and fit math.
func (s *Store) SetViewport(w, h float64) {
	if w > 0 {
		s.viewportW = w
	}
	if h > 0 {
		s.viewportH = h
	}
}

// Viewport returns the screen size last given to SetViewport.
func (s *Store) Viewport() (float64, float64) { return s.viewportW, s.viewportH }

func (s *Store) aligner(c doc.Card) grid.Aligner {
	size := c.GridSize
	if size <= 0 {
		size = s.gridSize
	}
	return grid.NewAligner(size)
}

// AddCard inserts a card, selects it and pushes a history snapshot.
// Returns the assigned id.
func (s *Store) AddCard(c doc.Card) string {
	d, id := doc.AddCard(s.document, c)
	s.document = d
	s.selected = []string{id}
	s.PushHistory()
	s.log.Debug().Str("card", id).Str("type", string(c.Type)).Msg("card added")
	return id
}

// UpdateCard applies a patch to a card. No history snapshot: this is
// the hot path used on every gesture frame; the gesture's completion
// pushes instead.
func (s *Store) UpdateCard(id string, patch doc.CardPatch) {
	s.document = doc.UpdateCard(s.document, id, patch)
}

// DeleteCard removes a card, cascades edges, prunes the selection and
// pushes a history snapshot.
func (s *Store) DeleteCard(id string) {
	before := s.document.Version
	s.document = doc.DeleteCard(s.document, id)
	if s.document.Version == before {
		return
	}
	s.selected = lo.Filter(s.selected, func(sel string, _ int) bool { return sel != id })
	if s.hovered == id {
		s.hovered = ""
	}
	s.PushHistory()
	s.log.Debug().Str("card", id).Msg("card deleted")
}

// DeleteSelected removes every selected card as one discrete action.
func (s *Store) DeleteSelected() {
	if len(s.selected) == 0 {
		return
	}
	for _, id := range s.selected {
		s.document = doc.DeleteCard(s.document, id)
	}
	s.selected = nil
	s.hovered = ""
	s.PushHistory()
}

// DuplicateCard clones a card with the standard offset and selects
// the clone.
func (s *Store) DuplicateCard(id string) string {
	d, dupID := doc.DuplicateCard(s.document, id)
	if dupID == "" {
		return ""
	}
	s.document = d
	s.selected = []string{dupID}
	s.PushHistory()
	return dupID
}

// AddEdge links two cards and pushes a history snapshot.
func (s *Store) AddEdge(e doc.Edge) string {
	d, id := doc.AddEdge(s.document, e)
	s.document = d
	s.PushHistory()
	return id
}

// DeleteEdge removes an edge and pushes a history snapshot.
func (s *Store) DeleteEdge(id string) {
	before := s.document.Version
	s.document = doc.DeleteEdge(s.document, id)
	if s.document.Version != before {
		s.PushHistory()
	}
}

// SelectCard selects a single card, or toggles its membership when
// multi is set (shift-click semantics).
func (s *Store) SelectCard(id string, multi bool) {
	if _, ok := s.document.FindCard(id); !ok {
		return
	}
	if !multi {
		s.selected = []string{id}
		return
	}
	if lo.Contains(s.selected, id) {
		s.selected = lo.Filter(s.selected, func(sel string, _ int) bool { return sel != id })
	} else {
		s.selected = append(s.selected, id)
	}
}

// SelectCards replaces the selection, dropping ids that do not
// reference an existing card.
func (s *Store) SelectCards(ids []string) {
	s.selected = lo.Filter(ids, func(id string, _ int) bool {
		_, ok := s.document.FindCard(id)
		return ok
	})
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() { s.selected = nil }

// SelectAll selects every card.
func (s *Store) SelectAll() {
	s.selected = lo.Map(s.document.Cards, func(c doc.Card, _ int) string { return c.ID })
}

func (s *Store) selectedCards() []doc.Card {
	return lo.Filter(s.document.Cards, func(c doc.Card, _ int) bool {
		return lo.Contains(s.selected, c.ID)
	})
}

// SetCamera replaces the camera, clamping zoom, and writes it through
// onto the document without a version bump.
func (s *Store) SetCamera(cam geo.Camera) {
	cam.Zoom = geo.ClampZoom(cam.Zoom)
	s.camera = cam
	s.document = doc.SetCamera(s.document, cam)
}

// Pan shifts the camera by a screen-space delta.
func (s *Store) Pan(dx, dy float64) {
	s.SetCamera(geo.Camera{X: s.camera.X + dx, Y: s.camera.Y + dy, Zoom: s.camera.Zoom})
}

// ZoomAt applies a zoom factor anchored at a screen point: the world
// point under the cursor stays under the cursor afterwards.
func (s *Store) ZoomAt(screen geo.Point, factor float64) {
	newZoom := geo.ClampZoom(s.camera.Zoom * factor)
	world := geo.ScreenToWorld(screen, s.camera)
	s.SetCamera(geo.Camera{
		X:    screen.X - world.X*newZoom,
		Y:    screen.Y - world.Y*newZoom,
		Zoom: newZoom,
	})
}

// Copy captures the selected cards onto the internal clipboard.
func (s *Store) Copy() {
	s.clipboard = lo.Map(s.selectedCards(), func(c doc.Card, _ int) doc.Card { return c.Clone() })
}

// Paste inserts clones of the clipboard cards offset by the standard
// paste delta (or the given offset), selects them, and pushes one
// history snapshot for the whole paste.
func (s *Store) Paste(offset *geo.Point) {
	if len(s.clipboard) == 0 {
		return
	}
	off := geo.Point{X: doc.DuplicateOffset, Y: doc.DuplicateOffset}
	if offset != nil {
		off = *offset
	}
	var newIDs []string
	for _, c := range s.clipboard {
		clone := c.Clone()
		clone.X += off.X
		clone.Y += off.Y
		d, id := doc.AddCard(s.document, clone)
		s.document = d
		newIDs = append(newIDs, id)
	}
	s.selected = newIDs
	s.PushHistory()
}

// Cut copies then deletes the selection as one discrete action.
func (s *Store) Cut() {
	if len(s.selected) == 0 {
		return
	}
	s.Copy()
	s.DeleteSelected()
}

// ClipboardLen reports how many cards the clipboard holds.
func (s *Store) ClipboardLen() int { return len(s.clipboard) }

// PushHistory records the live document as a history snapshot. Call
// once per completed discrete user action, never per gesture frame.
func (s *Store) PushHistory() { s.hist.Push(s.document) }

// Undo restores the previous snapshot and clears the selection so no
// stale ids survive into the restored document.
func (s *Store) Undo() bool {
	d, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.document = d
	s.camera = d.Camera
	s.selected = nil
	return true
}

// Redo restores the next snapshot, symmetric to Undo.
func (s *Store) Redo() bool {
	d, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.document = d
	s.camera = d.Camera
	s.selected = nil
	return true
}

// CanUndo reports whether an undo step exists.
func (s *Store) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether a redo step exists.
func (s *Store) CanRedo() bool { return s.hist.CanRedo() }

// LoadDocument replaces the live document wholesale and resets
// history to a single present snapshot.
func (s *Store) LoadDocument(d doc.Document) {
	if d.Camera.Zoom <= 0 {
		d.Camera.Zoom = 1
	}
	s.document = d
	s.camera = d.Camera
	s.selected = nil
	s.hovered = ""
	s.snapToGrid = d.SnapToGrid
	if d.GridSize > 0 {
		s.gridSize = d.GridSize
	}
	s.hist.Reset(d)
	s.gesture = gestureState{}
}

// VisibleCards returns the cards intersecting the viewport, sorted by
// paint order.
func (s *Store) VisibleCards() []doc.Card {
	return lo.Filter(s.document.CardsByZ(), func(c doc.Card, _ int) bool {
		return geo.Visible(c.Bounds(), s.camera, s.viewportW, s.viewportH)
	})
}
