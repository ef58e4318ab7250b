package canvas

import (
	"math"
	"sort"

	"mural/internal/doc"
	"mural/internal/geo"
)

// Fit padding and zoom caps. Fit operations never zoom in past their
// cap even when the content would allow it.
const (
	FitAllPadding       = 100.0
	FitAllMaxZoom       = 1.0
	FitSelectionPadding = 50.0
	FitSelectionMaxZoom = 2.0
)

// AlignEdge names the edge or axis cards are aligned against.
type AlignEdge int

const (
	AlignLeft AlignEdge = iota
	AlignRight
	AlignTop
	AlignBottom
	AlignCenterX
	AlignCenterY
)

// Axis selects the direction for distribute operations.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Arrangement names the auto-layout patterns.
type Arrangement int

const (
	ArrangeGrid Arrangement = iota
	ArrangeList
	ArrangeCircle
)

// ZoomToFit frames all content with standard padding, capped at 100%
// zoom. An empty document resets the camera instead.
func (s *Store) ZoomToFit() {
	content, ok := s.document.ContentBounds()
	if !ok {
		s.ResetZoom()
		return
	}
	s.fitBounds(content, FitAllPadding, FitAllMaxZoom)
}

// ZoomToSelection frames the selected cards with tighter padding,
// capped at 200% zoom. With nothing selected it falls back to
// ZoomToFit.
func (s *Store) ZoomToSelection() {
	cards := s.selectedCards()
	if len(cards) == 0 {
		s.ZoomToFit()
		return
	}
	var all []geo.Bounds
	for _, c := range cards {
		all = append(all, c.Bounds())
	}
	content, _ := geo.Union(all)
	s.fitBounds(content, FitSelectionPadding, FitSelectionMaxZoom)
}

// ResetZoom returns the camera to origin at 100%.
func (s *Store) ResetZoom() {
	s.SetCamera(geo.Camera{X: 0, Y: 0, Zoom: 1})
}

func (s *Store) fitBounds(content geo.Bounds, padding, maxZoom float64) {
	padded := geo.Bounds{
		X:      content.X - padding,
		Y:      content.Y - padding,
		Width:  content.Width + padding*2,
		Height: content.Height + padding*2,
	}
	if padded.Width <= 0 || padded.Height <= 0 {
		return
	}
	zoom := geo.Clamp(
		min(s.viewportW/padded.Width, s.viewportH/padded.Height),
		geo.MinZoom, maxZoom,
	)
	cx := padded.X + padded.Width/2
	cy := padded.Y + padded.Height/2
	s.SetCamera(geo.Camera{
		X:    s.viewportW/2 - cx*zoom,
		Y:    s.viewportH/2 - cy*zoom,
		Zoom: zoom,
	})
}

// AlignSelected lines up the selected cards against the shared edge or
// center axis. Needs at least two cards; pushes one history snapshot
// for the batch.
func (s *Store) AlignSelected(edge AlignEdge) {
	cards := s.selectedCards()
	if len(cards) < 2 {
		return
	}
	var all []geo.Bounds
	for _, c := range cards {
		all = append(all, c.Bounds())
	}
	union, _ := geo.Union(all)

	for _, c := range cards {
		b := c.Bounds()
		switch edge {
		case AlignLeft:
			b.X = union.X
		case AlignRight:
			b.X = union.X + union.Width - b.Width
		case AlignTop:
			b.Y = union.Y
		case AlignBottom:
			b.Y = union.Y + union.Height - b.Height
		case AlignCenterX:
			b.X = union.X + (union.Width-b.Width)/2
		case AlignCenterY:
			b.Y = union.Y + (union.Height-b.Height)/2
		}
		s.placeSnapped(c, b)
	}
	s.PushHistory()
}

// DistributeSelected equalizes the gaps between the selected cards
// along one axis, keeping the first and last cards in place. Needs at
// least three cards.
func (s *Store) DistributeSelected(axis Axis) {
	cards := s.selectedCards()
	if len(cards) < 3 {
		return
	}
	sort.SliceStable(cards, func(i, j int) bool {
		if axis == Horizontal {
			return cards[i].X < cards[j].X
		}
		return cards[i].Y < cards[j].Y
	})

	var span, sizes float64
	first, last := cards[0], cards[len(cards)-1]
	if axis == Horizontal {
		span = (last.X + last.Width) - first.X
	} else {
		span = (last.Y + last.Height) - first.Y
	}
	for _, c := range cards {
		if axis == Horizontal {
			sizes += c.Width
		} else {
			sizes += c.Height
		}
	}
	gap := (span - sizes) / float64(len(cards)-1)

	pos := 0.0
	if axis == Horizontal {
		pos = first.X
	} else {
		pos = first.Y
	}
	for i, c := range cards {
		b := c.Bounds()
		if axis == Horizontal {
			b.X = pos
			pos += b.Width + gap
		} else {
			b.Y = pos
			pos += b.Height + gap
		}
		// endpoints stay put; snapping them would defeat the
		// equal-gap math the user asked for
		if i == 0 || i == len(cards)-1 {
			continue
		}
		s.placeSnapped(c, b)
	}
	s.PushHistory()
}

// ArrangeSelected lays the selected cards out in a grid, a vertical
// list or a circle, anchored at the selection's top-left corner.
// Spacing is two grid cells; one history snapshot for the batch.
func (s *Store) ArrangeSelected(kind Arrangement) {
	cards := s.selectedCards()
	if len(cards) < 2 {
		return
	}
	var all []geo.Bounds
	for _, c := range cards {
		all = append(all, c.Bounds())
	}
	union, _ := geo.Union(all)
	spacing := s.gridSize * 2

	switch kind {
	case ArrangeGrid:
		cols := 1
		for cols*cols < len(cards) {
			cols++
		}
		var maxW, maxH float64
		for _, c := range cards {
			maxW = max(maxW, c.Width)
			maxH = max(maxH, c.Height)
		}
		for i, c := range cards {
			b := c.Bounds()
			b.X = union.X + float64(i%cols)*(maxW+spacing)
			b.Y = union.Y + float64(i/cols)*(maxH+spacing)
			s.placeSnapped(c, b)
		}
	case ArrangeList:
		y := union.Y
		for _, c := range cards {
			b := c.Bounds()
			b.X = union.X
			b.Y = y
			s.placeSnapped(c, b)
			y += b.Height + spacing
		}
	case ArrangeCircle:
		var maxDim float64
		for _, c := range cards {
			maxDim = max(maxDim, max(c.Width, c.Height))
		}
		radius := max(float64(len(cards))*(maxDim+spacing)/(2*math.Pi), maxDim)
		cx := union.X + union.Width/2
		cy := union.Y + union.Height/2
		for i, c := range cards {
			angle := 2 * math.Pi * float64(i) / float64(len(cards))
			b := c.Bounds()
			b.X = cx + radius*math.Cos(angle) - b.Width/2
			b.Y = cy + radius*math.Sin(angle) - b.Height/2
			s.placeSnapped(c, b)
		}
	}
	s.PushHistory()
}

// placeSnapped writes new bounds for a card, snapping position to the
// grid when snapping applies. Layout operations move cards, so only
// position snaps; size is untouched.
func (s *Store) placeSnapped(c doc.Card, b geo.Bounds) {
	if s.snapToGrid && c.SnapToGrid {
		p := s.aligner(c).SnapPoint(geo.Point{X: b.X, Y: b.Y})
		b.X = p.X
		b.Y = p.Y
	}
	s.UpdateCard(c.ID, doc.PositionPatch(b.X, b.Y))
}
