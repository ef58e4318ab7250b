// Package doc is the in-memory document model: a versioned collection
// of typed cards and the edges between them, positioned in world
// space. Every mutation is a pure function producing a new Document
// value so that history can keep old snapshots alive.
package doc

import (
	"time"

	"mural/internal/geo"
)

// CardType discriminates the card variants.
type CardType string

const (
	TypeText   CardType = "text"
	TypeRich   CardType = "text-card"
	TypeAI     CardType = "ai-card"
	TypeFigure CardType = "figure-card"
	TypePDF    CardType = "pdf-card"
	TypeVideo  CardType = "video-card"
)

// MinCardSize is the smallest width/height a card may have.
const MinCardSize = 20

// TextPayload is the body of a plain text card.
type TextPayload struct {
	Content string `json:"content"`
}

// RichPayload is the body of a titled rich-text card.
type RichPayload struct {
	Title    string   `json:"title"`
	BodyHTML string   `json:"bodyHtml"`
	Tags     []string `json:"tags,omitempty"`
}

// AIPayload is the body of an AI-generated card; the body is raw
// markdown appended to as deltas stream in.
type AIPayload struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"bodyMarkdown"`
	Tags         []string `json:"tags,omitempty"`
}

// FigurePayload is the body of an image card.
type FigurePayload struct {
	Src           string  `json:"src"`
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
	Alt           string  `json:"alt,omitempty"`
	Caption       string  `json:"caption,omitempty"`
}

// FilePayload is the body of a PDF or embedded video card.
type FilePayload struct {
	Src      string `json:"src"`
	Page     int    `json:"page,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Card is a positioned, typed content unit. Exactly one payload
// pointer matching Type is set; the others stay nil.
type Card struct {
	ID       string   `json:"id"`
	Type     CardType `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Z        int      `json:"z"`
	Rotation float64  `json:"rotation,omitempty"`

	GridSize   float64 `json:"gridSize"`
	SnapToGrid bool    `json:"snapToGrid"`

	LockAspectRatio bool    `json:"lockAspectRatio,omitempty"`
	AspectRatio     float64 `json:"aspectRatio,omitempty"`

	Text   *TextPayload   `json:"text,omitempty"`
	Rich   *RichPayload   `json:"rich,omitempty"`
	AI     *AIPayload     `json:"ai,omitempty"`
	Figure *FigurePayload `json:"figure,omitempty"`
	File   *FilePayload   `json:"file,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bounds returns the card's world-space bounding box.
func (c Card) Bounds() geo.Bounds {
	return geo.Bounds{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// SetBounds writes a bounding box back onto the card, clamping size
// to the card minimum. Degenerate sizes are impossible by
// construction, not detected after the fact.
func (c *Card) SetBounds(b geo.Bounds) {
	c.X = b.X
	c.Y = b.Y
	if b.Width < MinCardSize {
		b.Width = MinCardSize
	}
	if b.Height < MinCardSize {
		b.Height = MinCardSize
	}
	c.Width = b.Width
	c.Height = b.Height
}

// Clone deep-copies the card, including its payload.
func (c Card) Clone() Card {
	out := c
	switch {
	case c.Text != nil:
		p := *c.Text
		out.Text = &p
	case c.Rich != nil:
		p := *c.Rich
		p.Tags = append([]string(nil), c.Rich.Tags...)
		out.Rich = &p
	case c.AI != nil:
		p := *c.AI
		p.Tags = append([]string(nil), c.AI.Tags...)
		out.AI = &p
	case c.Figure != nil:
		p := *c.Figure
		out.Figure = &p
	case c.File != nil:
		p := *c.File
		out.File = &p
	}
	return out
}

// EdgeAnchor names the side an edge attaches to.
type EdgeAnchor string

const (
	AnchorAuto   EdgeAnchor = "auto"
	AnchorTop    EdgeAnchor = "t"
	AnchorRight  EdgeAnchor = "r"
	AnchorBottom EdgeAnchor = "b"
	AnchorLeft   EdgeAnchor = "l"
)

// EdgeStyle carries the rendering hints for an edge.
type EdgeStyle struct {
	Color       string    `json:"color,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Arrow       string    `json:"arrow,omitempty"`
	DashPattern []float64 `json:"dashPattern,omitempty"`
}

// Edge associates two cards. Deleting either endpoint cascades to the
// edge.
type Edge struct {
	ID           string     `json:"id"`
	SourceID     string     `json:"sourceId"`
	TargetID     string     `json:"targetId"`
	SourceAnchor EdgeAnchor `json:"sourceAnchor,omitempty"`
	TargetAnchor EdgeAnchor `json:"targetAnchor,omitempty"`
	Points       []float64  `json:"points,omitempty"`
	Style        *EdgeStyle `json:"style,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
