package world

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/maps"
	"mapview/internal/mapbuf"
)

func newTestFeed(t *testing.T, sight int) (*Feed, *faces.Registry) {
	t.Helper()
	reg := faces.Builtin(8)
	f := NewFeed(maps.DefaultScene(), reg, Options{ViewWidth: 11, ViewHeight: 11, Sight: sight, Seed: 1})
	return f, reg
}

func has(ups []engine.Update, want engine.Update) bool {
	for _, u := range ups {
		if u == want {
			return true
		}
	}
	return false
}

func TestJoin_FeedsEngine(t *testing.T) {
	f, reg := newTestFeed(t, 0)
	ups := f.Join()
	require.NotEmpty(t, ups)
	assert.Equal(t, engine.KindReset, ups[0].Kind)

	e, err := engine.New(engine.Options{
		Width: 15, Height: 15, ViewWidth: 11, ViewHeight: 11, Faces: reg,
	}, nil)
	require.NoError(t, err)
	for _, u := range ups {
		require.NoError(t, e.Apply(u), u.Kind.String())
	}

	grass, ok := reg.Lookup("grass")
	require.True(t, ok)
	x, y := e.Buffer().ToBufferCoords(5, 5)
	c, err := e.Buffer().Cell(x, y)
	require.NoError(t, err)
	assert.Equal(t, grass, c.Layers[0].Head)
	assert.Equal(t, uint8(3), c.Layers[0].SmoothLevel)
	assert.True(t, c.HasDarkness)
	assert.Equal(t, f.Scene().DarknessAt(f.X, f.Y), c.Darkness)
}

func TestTile_Objects(t *testing.T) {
	f, reg := newTestFeed(t, 0)
	lamp, _ := reg.Lookup("lamp")
	tree, _ := reg.Lookup("tree")

	ups := f.tile(2, 3, 24, 14)
	assert.True(t, has(ups, engine.LayerFace(2, 3, 3, lamp, mapbuf.Offset{}, mapbuf.NoFace, mapbuf.Offset{})))

	// upper half of a 1x2 tree is a tail piece one tile above the anchor
	ups = f.tile(0, 0, 30, 7)
	assert.True(t, has(ups, engine.LayerFace(0, 0, 2, mapbuf.NoFace, mapbuf.Offset{}, tree, mapbuf.Offset{Y: 1})))
}

func TestMove_Blocked(t *testing.T) {
	f, _ := newTestFeed(t, 0)
	f.Join()
	f.X, f.Y = 1, 1
	ups, ok := f.Move(-1, 0)
	assert.False(t, ok, "wall")
	assert.Nil(t, ups)
	assert.Equal(t, 1, f.X)

	f.X, f.Y = 30, 9
	_, ok = f.Move(0, -1)
	assert.False(t, ok, "tree anchor blocks")
}

func TestMove_ScrollAndFog(t *testing.T) {
	f, _ := newTestFeed(t, 3)
	f.Join()
	sx, sy := f.X, f.Y

	ups, ok := f.Move(1, 0)
	require.True(t, ok)
	assert.Equal(t, engine.ScrollBy(1, 0), ups[0])

	// left edge of the sight circle drops out
	lx, ly := f.ToScreen(sx-3, sy)
	assert.True(t, has(ups, engine.FogCleared(lx, ly)))

	// right edge comes into sight and is refreshed
	rx, ry := f.ToScreen(sx+4, sy)
	assert.True(t, has(ups, engine.FogVisible(rx, ry)))
	assert.True(t, has(ups, engine.Darkness(rx, ry, f.Scene().DarknessAt(sx+4, sy))))

	// the player tile stays in sight and is not resent
	px, py := f.ToScreen(f.X, f.Y)
	assert.False(t, has(ups, engine.FogVisible(px, py)))
}

func newFeedEngine(t *testing.T, f *Feed, reg *faces.Registry) *engine.Engine {
	t.Helper()
	w, h := config.MapConfig{ViewWidth: f.opts.ViewWidth, ViewHeight: f.opts.ViewHeight}.BufferSize()
	e, err := engine.New(engine.Options{
		Width: w, Height: h, ViewWidth: f.opts.ViewWidth, ViewHeight: f.opts.ViewHeight, Faces: reg,
	}, nil)
	require.NoError(t, err)
	return e
}

func applyAll(t *testing.T, e *engine.Engine, ups []engine.Update) {
	t.Helper()
	for _, u := range ups {
		require.NoError(t, e.Apply(u), u.Kind.String())
	}
}

// checkFog asserts that every in-view tile in sight is live with the scene
// darkness, and every tile out of sight is either fogged or never seen.
func checkFog(t *testing.T, f *Feed, e *engine.Engine) {
	t.Helper()
	for sy := 0; sy < f.opts.ViewHeight; sy++ {
		for sx := 0; sx < f.opts.ViewWidth; sx++ {
			wx, wy := f.ToWorld(sx, sy)
			if !f.scene.InBounds(wx, wy) {
				continue
			}
			bx, by := e.Buffer().ToBufferCoords(sx, sy)
			c, err := e.Buffer().Cell(bx, by)
			require.NoError(t, err)
			if f.inSight(wx, wy) {
				require.False(t, c.FogCleared, "tile %d,%d in sight is fogged", wx, wy)
				require.True(t, c.HasDarkness, "tile %d,%d in sight was never sent", wx, wy)
				require.Equal(t, f.scene.DarknessAt(wx, wy), c.Darkness, "tile %d,%d", wx, wy)
			} else if c.HasDarkness {
				require.True(t, c.FogCleared, "tile %d,%d out of sight is shown live", wx, wy)
			}
		}
	}
}

func TestMove_SightWiderThanHalfView(t *testing.T) {
	reg := faces.Builtin(8)
	f := NewFeed(maps.DefaultScene(), reg, Options{ViewWidth: 11, ViewHeight: 11, Sight: 6})
	f.X, f.Y = 5, 1
	e := newFeedEngine(t, f, reg)
	applyAll(t, e, f.Join())

	for _, d := range [][2]int{{1, 0}, {0, 1}, {0, 1}, {0, 1}, {0, 1}, {-1, 0}} {
		ups, ok := f.Move(d[0], d[1])
		require.True(t, ok, "move %v from %d,%d", d, f.X, f.Y)
		applyAll(t, e, ups)
		checkFog(t, f, e)
	}

	// (0,1) left sight while on the view edge and has scrolled back in
	sx, sy := f.ToScreen(0, 1)
	bx, by := e.Buffer().ToBufferCoords(sx, sy)
	c, err := e.Buffer().Cell(bx, by)
	require.NoError(t, err)
	assert.True(t, c.FogCleared)
}

func TestMove_RandomWalkKeepsFog(t *testing.T) {
	reg := faces.Builtin(8)
	steps := [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, sight := range []int{0, 3, 5, 6, 8, 12} {
		t.Run(fmt.Sprintf("sight %d", sight), func(t *testing.T) {
			f := NewFeed(maps.DefaultScene(), reg, Options{ViewWidth: 11, ViewHeight: 9, Sight: sight})
			e := newFeedEngine(t, f, reg)
			applyAll(t, e, f.Join())
			checkFog(t, f, e)

			rng := rand.New(rand.NewSource(int64(sight) + 1))
			for i := 0; i < 300; i++ {
				d := steps[rng.Intn(len(steps))]
				ups, ok := f.Move(d[0], d[1])
				if !ok {
					continue
				}
				applyAll(t, e, ups)
				checkFog(t, f, e)
			}
		})
	}
}

func TestInvalidate_NextMoveRejoins(t *testing.T) {
	f, _ := newTestFeed(t, 0)
	f.Join()
	require.True(t, f.Joined())

	f.Invalidate()
	assert.False(t, f.Joined())
	ups, ok := f.Move(1, 0)
	require.True(t, ok)
	assert.Equal(t, engine.KindReset, ups[0].Kind)
	assert.True(t, f.Joined())
}

func TestMove_BeforeJoin(t *testing.T) {
	f, _ := newTestFeed(t, 0)
	ups, ok := f.Move(1, 0)
	require.True(t, ok)
	assert.Equal(t, engine.KindReset, ups[0].Kind)
}

func TestFlicker(t *testing.T) {
	f, _ := newTestFeed(t, 0)
	f.Join()
	assert.Nil(t, f.Flicker())

	f.opts.Flicker = 20
	ups := f.Flicker()
	require.NotEmpty(t, ups)
	for _, u := range ups {
		require.Equal(t, engine.KindDarkness, u.Kind)
		wx, wy := f.ToWorld(u.X, u.Y)
		base := f.Scene().DarknessAt(wx, wy)
		assert.GreaterOrEqual(t, u.Darkness, base)
		assert.LessOrEqual(t, int(u.Darkness), int(base)+20)
	}
}

type names map[string]mapbuf.FaceID

func (n names) Lookup(name string) (mapbuf.FaceID, bool) {
	id, ok := n[name]
	return id, ok
}

func TestUnknownFace(t *testing.T) {
	f := NewFeed(maps.DefaultScene(), names{"grass": 7}, Options{ViewWidth: 3, ViewHeight: 3})
	ups := f.tile(0, 0, 0, 0)
	require.NotEmpty(t, ups)
	assert.Equal(t, mapbuf.NoFace, ups[0].Head, "wall is unknown")
	assert.True(t, f.unknown["wall"])
}
