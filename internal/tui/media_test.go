package tui

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mural/internal/doc"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fig.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	return path
}

func TestFigureSizeUsesNaturalDimensions(t *testing.T) {
	path := writeTestPNG(t, 64, 32)
	nw, nh, w, h, err := figureSize(path)
	require.NoError(t, err)
	assert.Equal(t, 64.0, nw)
	assert.Equal(t, 32.0, nh)
	assert.Equal(t, 64.0, w)
	assert.Equal(t, 32.0, h)
}

func TestFigureSizeCapsWideImages(t *testing.T) {
	path := writeTestPNG(t, 1200, 600)
	_, _, w, h, err := figureSize(path)
	require.NoError(t, err)
	assert.Equal(t, 600.0, w)
	assert.Equal(t, 300.0, h)
}

func TestSizeFromSrcPDFUsesA4(t *testing.T) {
	c := doc.Card{Type: doc.TypePDF, File: &doc.FilePayload{}}
	patch, ok := sizeFromSrc(c, "paper.pdf")
	require.True(t, ok)
	assert.Equal(t, 600.0, *patch.Width)
	assert.InDelta(t, 848.4, *patch.Height, 0.1)
}

func TestSizeFromSrcUnreadableFigureKeepsDefault(t *testing.T) {
	c := doc.Card{Type: doc.TypeFigure, Figure: &doc.FigurePayload{}}
	_, ok := sizeFromSrc(c, filepath.Join(t.TempDir(), "missing.png"))
	assert.False(t, ok)
}
