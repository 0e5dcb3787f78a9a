package render

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/light"
	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

const testTile = 8

func newTestComposer(t *testing.T) (*Composer, *faces.Registry) {
	t.Helper()
	reg := faces.Builtin(testTile)
	return NewComposer(reg), reg
}

func faceID(t *testing.T, reg *faces.Registry, name string) mapbuf.FaceID {
	t.Helper()
	id, ok := reg.Lookup(name)
	require.True(t, ok, name)
	return id
}

func cellWith(head mapbuf.FaceID, p light.Params) engine.DrawCell {
	var dc engine.DrawCell
	dc.Layers[0].Head = head
	dc.Light = p
	return dc
}

func TestCompose_LayersAndLighting(t *testing.T) {
	comp, reg := newTestComposer(t)
	grass := faceID(t, reg, "grass")
	dst := image.NewRGBA(image.Rect(0, 0, testTile, testTile))

	comp.Compose(dst, cellWith(grass, light.Params{Mode: light.Off}))
	px := dst.RGBAAt(3, 3)
	assert.Equal(t, uint8(70), px.R)
	assert.Equal(t, uint8(140), px.G)

	comp.Compose(dst, cellWith(grass, light.Params{Mode: light.PerTile, Opacity: 128}))
	assert.InDelta(t, 70, int(dst.RGBAAt(3, 3).G), 2, "about half of 140")

	comp.Compose(dst, cellWith(grass, light.Params{Mode: light.PerTile, Opacity: 255, Opaque: true}))
	assert.Equal(t, color.RGBA{A: 255}, dst.RGBAAt(0, 0))

	comp.Compose(dst, cellWith(grass, light.Params{Mode: light.PerPixel, Fogged: true}))
	fp := dst.RGBAAt(2, 2)
	assert.Equal(t, fp.R, fp.G)
	assert.Equal(t, fp.G, fp.B)
	assert.Positive(t, int(fp.R), "fogged cells stay visible")
	assert.Zero(t, comp.Missing)
}

func TestCompose_PerPixelField(t *testing.T) {
	comp, reg := newTestComposer(t)
	snow := faceID(t, reg, "snow")
	dst := image.NewRGBA(image.Rect(0, 0, testTile, testTile))

	field := light.NewField(light.Samples{Center: 0, North: 0, South: 0, West: 255, East: 0}, 4, 4)
	comp.Compose(dst, cellWith(snow, light.Params{Mode: light.PerPixel, Field: field}))
	assert.Less(t, dst.RGBAAt(0, 4).R, dst.RGBAAt(7, 4).R, "west edge darker")
}

func TestCompose_BlendOverlay(t *testing.T) {
	comp, reg := newTestComposer(t)
	grass := faceID(t, reg, "grass")
	sandAtlas, err := smooth.ResolveFace(reg, faceID(t, reg, "sand"))
	require.NoError(t, err)

	dc := cellWith(grass, light.Params{})
	dc.Blends[0] = []smooth.Blend{{Level: 2, Face: sandAtlas, Border: smooth.BorderW}}
	dst := image.NewRGBA(image.Rect(0, 0, testTile, testTile))
	comp.Compose(dst, dc)

	assert.Equal(t, uint8(210), dst.RGBAAt(0, 4).R, "west edge is sand")
	assert.Equal(t, uint8(70), dst.RGBAAt(7, 4).R, "east edge stays grass")
}

func TestCompose_MissingFacesCounted(t *testing.T) {
	comp, _ := newTestComposer(t)
	dst := image.NewRGBA(image.Rect(0, 0, testTile, testTile))

	dc := cellWith(999, light.Params{})
	dc.Layers[1].Tail = 21
	dc.Layers[1].TailOffset = mapbuf.Offset{Y: 5}
	dc.Blends[0] = []smooth.Blend{{Face: 998, Border: smooth.BorderN}}
	comp.Compose(dst, dc)
	assert.Equal(t, 3, comp.Missing)
	assert.Zero(t, dst.RGBAAt(4, 4).R, "nothing drawn over black")
}

func TestTerminal_DrawAndDiff(t *testing.T) {
	comp, reg := newTestComposer(t)
	var out bytes.Buffer
	term := NewTerminal(&out, comp, 40, 21, 4)

	w, h := term.ViewSize()
	assert.Equal(t, 10, w)
	assert.Equal(t, 10, h)

	water := faceID(t, reg, "water")
	cells := []engine.DrawCell{cellWith(water, light.Params{})}
	term.SetStatus("pos 3,4")
	require.NoError(t, term.Draw(engine.Frame{Full: true, Cells: seq(cells)}))
	first := out.String()
	assert.Contains(t, first, string(HalfBlock))
	assert.Contains(t, first, "48;2;40;80;170", "water as background colour")
	assert.True(t, strings.HasSuffix(first, Reset))

	out.Reset()
	require.NoError(t, term.Draw(engine.Frame{Cells: seq(nil)}))
	assert.Empty(t, out.String(), "unchanged frame writes nothing")
}

func TestTerminal_ScrollShiftsCache(t *testing.T) {
	comp, reg := newTestComposer(t)
	var out bytes.Buffer
	term := NewTerminal(&out, comp, 40, 21, 4)

	sand := faceID(t, reg, "sand")
	dc := cellWith(sand, light.Params{})
	dc.ScreenX = 1
	require.NoError(t, term.Draw(engine.Frame{Full: true, Cells: seq([]engine.DrawCell{dc})}))
	assert.Equal(t, uint8(210), term.canvas.Pixels.RGBAAt(5, 1).R)

	require.NoError(t, term.Draw(engine.Frame{ScrollX: 1, Cells: seq(nil)}))
	assert.Equal(t, uint8(210), term.canvas.Pixels.RGBAAt(1, 1).R, "moved one tile left")
	assert.Zero(t, term.canvas.Pixels.RGBAAt(5, 1).R)
}

func TestCanvas_NativeTileSize(t *testing.T) {
	comp, reg := newTestComposer(t)
	c := NewCanvas(comp, 4, 3, 0)
	assert.Equal(t, testTile, c.CellPixels())
	assert.Equal(t, image.Rect(0, 0, 4*testTile, 3*testTile), c.Pixels.Bounds())

	grass := faceID(t, reg, "grass")
	dc := cellWith(grass, light.Params{})
	dc.ScreenX, dc.ScreenY = 2, 1
	outside := dc
	outside.ScreenX = 9
	require.NoError(t, c.Draw(engine.Frame{Full: true, Cells: seq([]engine.DrawCell{dc, outside})}))
	assert.Equal(t, uint8(70), c.Pixels.RGBAAt(2*testTile+1, testTile+1).R)
	assert.Zero(t, c.Pixels.RGBAAt(1, 1).R)

	require.NoError(t, c.Draw(engine.Frame{ScrollY: -1, Cells: seq(nil)}))
	assert.Equal(t, uint8(70), c.Pixels.RGBAAt(2*testTile+1, 2*testTile+1).R, "moved one tile down")

	require.NoError(t, c.Draw(engine.Frame{Full: true, Cells: seq(nil)}))
	assert.Zero(t, c.Pixels.RGBAAt(2*testTile+1, 2*testTile+1).R)
}

func seq(cells []engine.DrawCell) func(func(engine.DrawCell) bool) {
	return func(yield func(engine.DrawCell) bool) {
		for _, c := range cells {
			if !yield(c) {
				return
			}
		}
	}
}
