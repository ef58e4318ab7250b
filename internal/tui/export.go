package tui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"mural/internal/doc"
)

const (
	exportPaddingPx = 40.0
	exportMaxDim    = 8192
	exportFontSize  = 13.0
)

// ExportPNG rasterizes the whole document to a PNG at world scale:
// edges first, then cards in paint order, each card as a rounded
// rectangle with its title and wrapped body text.
func ExportPNG(d doc.Document, filename string) error {
	content, ok := d.ContentBounds()
	if !ok {
		return fmt.Errorf("nothing to export")
	}

	scale := 1.0
	w := content.Width + exportPaddingPx*2
	h := content.Height + exportPaddingPx*2
	if w > exportMaxDim || h > exportMaxDim {
		scale = min(exportMaxDim/w, exportMaxDim/h)
	}
	dc := gg.NewContext(int(w*scale), int(h*scale))
	dc.Scale(scale, scale)
	dc.Translate(exportPaddingPx-content.X, exportPaddingPx-content.Y)

	dc.SetColor(color.White)
	dc.Clear()

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    exportFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	drawEdges(dc, d)
	for _, c := range d.CardsByZ() {
		drawCardPNG(dc, c)
	}

	return dc.SavePNG(filename)
}

func drawEdges(dc *gg.Context, d doc.Document) {
	dc.SetColor(color.Gray{Y: 120})
	dc.SetLineWidth(1.5)
	for _, e := range d.Edges {
		src, okS := d.FindCard(e.SourceID)
		dst, okT := d.FindCard(e.TargetID)
		if !okS || !okT {
			continue
		}
		dc.DrawLine(
			src.X+src.Width/2, src.Y+src.Height/2,
			dst.X+dst.Width/2, dst.Y+dst.Height/2,
		)
		dc.Stroke()
	}
}

func drawCardPNG(dc *gg.Context, c doc.Card) {
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(c.X, c.Y, c.Width, c.Height, 6)
	dc.FillPreserve()
	dc.SetColor(color.Gray{Y: 60})
	dc.SetLineWidth(1.5)
	dc.Stroke()

	header, body := cardText(c)
	pad := 8.0
	y := c.Y + pad + exportFontSize
	if header != "" {
		dc.SetColor(color.Black)
		dc.DrawString(header, c.X+pad, y)
		y += exportFontSize * 1.6
	}
	dc.SetColor(color.Gray{Y: 40})
	lines := dc.WordWrap(body, c.Width-pad*2)
	for _, line := range lines {
		if y > c.Y+c.Height-pad {
			break
		}
		dc.DrawString(line, c.X+pad, y)
		y += exportFontSize * 1.3
	}
}

func cardText(c doc.Card) (header, body string) {
	switch {
	case c.Text != nil:
		return "", c.Text.Content
	case c.Rich != nil:
		return c.Rich.Title, c.Rich.BodyHTML
	case c.AI != nil:
		return c.AI.Title, c.AI.BodyMarkdown
	case c.Figure != nil:
		caption := c.Figure.Caption
		if caption == "" {
			caption = c.Figure.Src
		}
		return "[figure]", caption
	case c.File != nil:
		return fmt.Sprintf("[%s]", strings.TrimSuffix(string(c.Type), "-card")), c.File.Src
	}
	return "", ""
}
