package doc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mural/internal/geo"
)

func textCard(x, y, w, h float64) Card {
	return Card{Type: TypeText, X: x, Y: y, Width: w, Height: h, Text: &TextPayload{Content: "hi"}}
}

func TestAddCardAssignsIDAndBumpsVersion(t *testing.T) {
	d := New()
	v := d.Version

	d2, id := AddCard(d, textCard(10, 20, 100, 80))
	require.NotEmpty(t, id)
	assert.Equal(t, v+1, d2.Version)
	assert.Len(t, d2.Cards, 1)
	// original value untouched
	assert.Empty(t, d.Cards)

	c, ok := d2.FindCard(id)
	require.True(t, ok)
	assert.Equal(t, 10.0, c.X)
	assert.Equal(t, d.GridSize, c.GridSize)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestUpdateCardPatchesFields(t *testing.T) {
	d, id := AddCard(New(), textCard(0, 0, 100, 80))
	x, content := 55.0, "updated"
	d2 := UpdateCard(d, id, CardPatch{X: &x, Content: &content})

	c, ok := d2.FindCard(id)
	require.True(t, ok)
	assert.Equal(t, 55.0, c.X)
	assert.Equal(t, "updated", c.Text.Content)
	assert.Equal(t, d.Version+1, d2.Version)

	// the pre-update snapshot still holds the old values
	old, _ := d.FindCard(id)
	assert.Equal(t, "hi", old.Text.Content)
}

func TestUpdateCardUnknownIDIsSilentNoOp(t *testing.T) {
	d, _ := AddCard(New(), textCard(0, 0, 100, 80))
	x := 99.0
	d2 := UpdateCard(d, "no-such-card", CardPatch{X: &x})
	assert.Equal(t, d.Version, d2.Version)
	assert.Equal(t, d.Cards, d2.Cards)
}

func TestUpdateCardClampsMinimumSize(t *testing.T) {
	d, id := AddCard(New(), textCard(0, 0, 100, 80))
	w, h := 3.0, -10.0
	d2 := UpdateCard(d, id, CardPatch{Width: &w, Height: &h})
	c, _ := d2.FindCard(id)
	assert.Equal(t, float64(MinCardSize), c.Width)
	assert.Equal(t, float64(MinCardSize), c.Height)
}

func TestAppendBodyAccumulatesDeltas(t *testing.T) {
	d, id := AddCard(New(), Card{
		Type: TypeAI, Width: 300, Height: 200,
		AI: &AIPayload{Title: "q"},
	})
	for _, delta := range []string{"Hel", "lo ", "world"} {
		delta := delta
		d = UpdateCard(d, id, CardPatch{AppendBody: &delta})
	}
	c, _ := d.FindCard(id)
	assert.Equal(t, "Hello world", c.AI.BodyMarkdown)
}

func TestDeleteCardCascadesEdges(t *testing.T) {
	d, a := AddCard(New(), textCard(0, 0, 100, 80))
	d, b := AddCard(d, textCard(200, 0, 100, 80))
	d, c := AddCard(d, textCard(400, 0, 100, 80))
	d, _ = AddEdge(d, Edge{SourceID: a, TargetID: b})
	d, _ = AddEdge(d, Edge{SourceID: b, TargetID: c})
	d, keep := AddEdge(d, Edge{SourceID: a, TargetID: c})

	d2 := DeleteCard(d, b)
	assert.Len(t, d2.Cards, 2)
	require.Len(t, d2.Edges, 1)
	assert.Equal(t, keep, d2.Edges[0].ID)
}

func TestDeleteCardUnknownIDIsNoOp(t *testing.T) {
	d, _ := AddCard(New(), textCard(0, 0, 100, 80))
	d2 := DeleteCard(d, "missing")
	assert.Equal(t, d.Version, d2.Version)
}

func TestDuplicateCardOffsets(t *testing.T) {
	d, id := AddCard(New(), textCard(10, 20, 100, 80))
	d2, dupID := DuplicateCard(d, id)
	require.NotEmpty(t, dupID)
	assert.NotEqual(t, id, dupID)

	dup, _ := d2.FindCard(dupID)
	assert.Equal(t, 10.0+DuplicateOffset, dup.X)
	assert.Equal(t, 20.0+DuplicateOffset, dup.Y)

	_, missing := DuplicateCard(d, "missing")
	assert.Empty(t, missing)
}

func TestCloneIsDeep(t *testing.T) {
	c := Card{Type: TypeRich, Rich: &RichPayload{Title: "a", Tags: []string{"x"}}}
	clone := c.Clone()
	clone.Rich.Title = "b"
	clone.Rich.Tags[0] = "y"
	assert.Equal(t, "a", c.Rich.Title)
	assert.Equal(t, "x", c.Rich.Tags[0])
}

func TestCardsByZStableOrder(t *testing.T) {
	d := New()
	var ids []string
	for _, z := range []int{2, 0, 1, 0} {
		var id string
		c := textCard(0, 0, 50, 50)
		c.Z = z
		d, id = AddCard(d, c)
		ids = append(ids, id)
	}
	sorted := d.CardsByZ()
	// z order ascending, insertion order within equal z
	assert.Equal(t, ids[1], sorted[0].ID)
	assert.Equal(t, ids[3], sorted[1].ID)
	assert.Equal(t, ids[2], sorted[2].ID)
	assert.Equal(t, ids[0], sorted[3].ID)
}

func TestTopCardAtPicksHighestZ(t *testing.T) {
	d := New()
	low := textCard(0, 0, 100, 100)
	low.Z = 1
	d, lowID := AddCard(d, low)
	high := textCard(50, 50, 100, 100)
	high.Z = 5
	d, highID := AddCard(d, high)

	hit, ok := d.TopCardAt(geo.Point{X: 75, Y: 75})
	require.True(t, ok)
	assert.Equal(t, highID, hit.ID)

	hit, ok = d.TopCardAt(geo.Point{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, lowID, hit.ID)

	_, ok = d.TopCardAt(geo.Point{X: 500, Y: 500})
	assert.False(t, ok)
}

func TestSetCameraDoesNotBumpVersion(t *testing.T) {
	d := New()
	d2 := SetCamera(d, geo.Camera{X: 9, Y: 9, Zoom: 2})
	assert.Equal(t, d.Version, d2.Version)
	assert.Equal(t, 2.0, d2.Camera.Zoom)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d, _ := AddCard(New(), textCard(37, 53, 200, 100))
	d, _ = AddCard(d, Card{Type: TypeAI, Width: 300, Height: 200, AI: &AIPayload{Title: "t", BodyMarkdown: "body"}})
	d = SetCamera(d, geo.Camera{X: 1, Y: 2, Zoom: 1.5})

	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, Save(d, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, d.Version, got.Version)
	assert.Equal(t, d.Camera, got.Camera)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, d.Cards[0].ID, got.Cards[0].ID)
	assert.Equal(t, "body", got.Cards[1].AI.BodyMarkdown)
}

func TestLoadClampsDegenerateValues(t *testing.T) {
	d := New()
	d.Camera.Zoom = 0
	d.GridSize = -1
	c := textCard(0, 0, 5, 5)
	c.Width, c.Height = 1, 1
	d.Cards = append(d.Cards, c)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, Save(d, path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Camera.Zoom)
	assert.Equal(t, 20.0, got.GridSize)
	assert.Equal(t, float64(MinCardSize), got.Cards[0].Width)
}

func TestNormalizeFilename(t *testing.T) {
	assert.Equal(t, "board.json", NormalizeFilename("board"))
	assert.Equal(t, "board.json", NormalizeFilename("board.json"))
	assert.Equal(t, "Board.JSON", NormalizeFilename("Board.JSON"))
}
