package tui

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"mural/internal/doc"
)

// Media card sizing. Figures take their image's natural dimensions
// scaled down to a readable card width; PDFs default to an A4 page.
const (
	figureMaxWidth = 600.0
	pdfPageWidth   = 600.0
	a4Ratio        = 1.414
)

// figureSize probes an image file for its natural dimensions and
// returns them alongside the display size capped at figureMaxWidth.
func figureSize(path string) (naturalW, naturalH, w, h float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	naturalW, naturalH = float64(cfg.Width), float64(cfg.Height)
	w, h = naturalW, naturalH
	if w > figureMaxWidth {
		h = h * figureMaxWidth / w
		w = figureMaxWidth
	}
	return naturalW, naturalH, w, h, nil
}

// sizeFromSrc builds the resize patch applied when a figure or pdf
// card gets its source path. Unreadable files keep the default size.
func sizeFromSrc(c doc.Card, path string) (doc.CardPatch, bool) {
	switch {
	case c.Figure != nil:
		nw, nh, w, h, err := figureSize(path)
		if err != nil {
			return doc.CardPatch{}, false
		}
		return doc.CardPatch{
			Width: &w, Height: &h,
			NaturalWidth: &nw, NaturalHeight: &nh,
		}, true
	case c.File != nil && c.Type == doc.TypePDF:
		w := pdfPageWidth
		h := pdfPageWidth * a4Ratio
		return doc.CardPatch{Width: &w, Height: &h}, true
	}
	return doc.CardPatch{}, false
}
