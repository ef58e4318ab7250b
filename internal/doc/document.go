package doc

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"mural/internal/geo"
)

// DuplicateOffset is the world-space offset applied when duplicating
// or pasting a card.
const DuplicateOffset = 20

// Document is the whole canvas. It is replaced wholesale on every
// mutation; Version increments on every structural change and serves
// as the dirty marker.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Cards      []Card     `json:"cards"`
	Edges      []Edge     `json:"edges"`
	Camera     geo.Camera `json:"camera"`
	GridSize   float64    `json:"gridSize"`
	SnapToGrid bool       `json:"snapToGrid"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Version    int        `json:"version"`
}

// New returns an empty untitled document with default grid settings.
func New() Document {
	now := time.Now()
	return Document{
		ID:         uuid.NewString(),
		Title:      "Untitled Canvas",
		Cards:      []Card{},
		Edges:      []Edge{},
		Camera:     geo.Camera{X: 0, Y: 0, Zoom: 1},
		GridSize:   20,
		SnapToGrid: true,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

func (d Document) bump(now time.Time) Document {
	d.UpdatedAt = now
	d.Version++
	return d
}

// FindCard returns the card with the given id, if present.
func (d Document) FindCard(id string) (Card, bool) {
	return lo.Find(d.Cards, func(c Card) bool { return c.ID == id })
}

// CardIndex returns the slice index of a card id, or -1.
func (d Document) CardIndex(id string) int {
	return lo.IndexOf(lo.Map(d.Cards, func(c Card, _ int) string { return c.ID }), id)
}

// AddCard appends a card, assigning a fresh id and timestamps and
// inheriting the document's grid settings when the card carries none.
// Returns the new document and the assigned id.
func AddCard(d Document, card Card) (Document, string) {
	now := time.Now()
	card.ID = uuid.NewString()
	card.CreatedAt = now
	card.UpdatedAt = now
	if card.GridSize <= 0 {
		card.GridSize = d.GridSize
	}
	out := d
	out.Cards = append(append([]Card{}, d.Cards...), card)
	return out.bump(now), card.ID
}

// CardPatch is a partial card update; nil fields are left untouched.
type CardPatch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
	Z      *int

	Content      *string // text payload
	Title        *string // rich / ai payload
	BodyHTML     *string // rich payload
	BodyMarkdown *string // ai payload, replaces body
	AppendBody   *string // ai payload, appends a streamed delta
	Src          *string // figure / file payload

	NaturalWidth  *float64 // figure payload
	NaturalHeight *float64 // figure payload

	LockAspectRatio *bool
	AspectRatio     *float64
	SnapToGrid      *bool
	GridSize        *float64
}

// BoundsPatch builds a patch that moves and resizes a card.
func BoundsPatch(b geo.Bounds) CardPatch {
	return CardPatch{X: &b.X, Y: &b.Y, Width: &b.Width, Height: &b.Height}
}

// PositionPatch builds a patch that only moves a card.
func PositionPatch(x, y float64) CardPatch {
	return CardPatch{X: &x, Y: &y}
}

func (p CardPatch) apply(c Card) Card {
	out := c.Clone()
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = *p.Width
		if out.Width < MinCardSize {
			out.Width = MinCardSize
		}
	}
	if p.Height != nil {
		out.Height = *p.Height
		if out.Height < MinCardSize {
			out.Height = MinCardSize
		}
	}
	if p.Z != nil {
		out.Z = *p.Z
	}
	if p.Content != nil && out.Text != nil {
		out.Text.Content = *p.Content
	}
	if p.Title != nil {
		if out.Rich != nil {
			out.Rich.Title = *p.Title
		}
		if out.AI != nil {
			out.AI.Title = *p.Title
		}
	}
	if p.BodyHTML != nil && out.Rich != nil {
		out.Rich.BodyHTML = *p.BodyHTML
	}
	if p.BodyMarkdown != nil && out.AI != nil {
		out.AI.BodyMarkdown = *p.BodyMarkdown
	}
	if p.AppendBody != nil && out.AI != nil {
		out.AI.BodyMarkdown += *p.AppendBody
	}
	if p.Src != nil {
		if out.Figure != nil {
			out.Figure.Src = *p.Src
		}
		if out.File != nil {
			out.File.Src = *p.Src
		}
	}
	if p.NaturalWidth != nil && out.Figure != nil {
		out.Figure.NaturalWidth = *p.NaturalWidth
	}
	if p.NaturalHeight != nil && out.Figure != nil {
		out.Figure.NaturalHeight = *p.NaturalHeight
	}
	if p.LockAspectRatio != nil {
		out.LockAspectRatio = *p.LockAspectRatio
	}
	if p.AspectRatio != nil {
		out.AspectRatio = *p.AspectRatio
	}
	if p.SnapToGrid != nil {
		out.SnapToGrid = *p.SnapToGrid
	}
	if p.GridSize != nil {
		out.GridSize = *p.GridSize
	}
	return out
}

// UpdateCard merges a patch into the matching card and bumps its
// UpdatedAt. An unknown id is a silent no-op without a version bump.
func UpdateCard(d Document, id string, patch CardPatch) Document {
	idx := -1
	for i, c := range d.Cards {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return d
	}
	now := time.Now()
	out := d
	out.Cards = append([]Card{}, d.Cards...)
	updated := patch.apply(out.Cards[idx])
	updated.UpdatedAt = now
	out.Cards[idx] = updated
	return out.bump(now)
}

// DeleteCard removes the card and cascades to every edge referencing
// it as source or target. Selection pruning is the store's job, not
// the document's.
func DeleteCard(d Document, id string) Document {
	if _, ok := d.FindCard(id); !ok {
		return d
	}
	out := d
	out.Cards = lo.Filter(d.Cards, func(c Card, _ int) bool { return c.ID != id })
	out.Edges = lo.Filter(d.Edges, func(e Edge, _ int) bool {
		return e.SourceID != id && e.TargetID != id
	})
	return out.bump(time.Now())
}

// DuplicateCard clones a card under a fresh id, offset by
// DuplicateOffset in both axes. Returns the unchanged document and ""
// when the id does not exist.
func DuplicateCard(d Document, id string) (Document, string) {
	orig, ok := d.FindCard(id)
	if !ok {
		return d, ""
	}
	dup := orig.Clone()
	dup.X += DuplicateOffset
	dup.Y += DuplicateOffset
	return AddCard(d, dup)
}

// AddEdge appends an edge with a fresh id and timestamps.
func AddEdge(d Document, e Edge) (Document, string) {
	now := time.Now()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	out := d
	out.Edges = append(append([]Edge{}, d.Edges...), e)
	return out.bump(now), e.ID
}

// DeleteEdge removes an edge by id; unknown ids are a no-op.
func DeleteEdge(d Document, id string) Document {
	found := false
	for _, e := range d.Edges {
		if e.ID == id {
			found = true
			break
		}
	}
	if !found {
		return d
	}
	out := d
	out.Edges = lo.Filter(d.Edges, func(e Edge, _ int) bool { return e.ID != id })
	return out.bump(time.Now())
}

// SetCamera stores the camera on the document without a version bump;
// panning is not a structural change.
func SetCamera(d Document, cam geo.Camera) Document {
	d.Camera = cam
	d.UpdatedAt = time.Now()
	return d
}

// CardsByZ returns the cards sorted ascending by paint order, stable
// for equal z so insertion order breaks ties.
func (d Document) CardsByZ() []Card {
	out := append([]Card{}, d.Cards...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Z < out[j-1].Z; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// TopCardAt hit-tests the topmost card under a world point. Later
// slice order wins ties within equal z, matching paint order.
func (d Document) TopCardAt(p geo.Point) (Card, bool) {
	sorted := d.CardsByZ()
	for i := len(sorted) - 1; i >= 0; i-- {
		if geo.PointInBounds(p, sorted[i].Bounds()) {
			return sorted[i], true
		}
	}
	return Card{}, false
}

// ContentBounds returns the union of all card bounds.
func (d Document) ContentBounds() (geo.Bounds, bool) {
	return geo.Union(lo.Map(d.Cards, func(c Card, _ int) geo.Bounds { return c.Bounds() }))
}
