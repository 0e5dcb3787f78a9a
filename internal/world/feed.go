// Package world streams a static scene into a session's engine the way a
// server connection would: a full view on join, then a scroll plus the
// newly exposed cells on every step, with fog-of-war for cells that drop
// out of sight.
package world

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"mapview/internal/engine"
	"mapview/internal/logger"
	"mapview/internal/maps"
	"mapview/internal/mapbuf"
)

// FaceResolver maps face names used by scenes to registered face ids.
type FaceResolver interface {
	Lookup(name string) (mapbuf.FaceID, bool)
}

// Options configures a Feed.
type Options struct {
	ViewWidth, ViewHeight int
	Sight                 int   // sight radius in tiles; 0 sees the whole viewport
	Flicker               uint8 // maximum darkness jitter near lights; 0 disables
	Seed                  int64
}

type point struct{ x, y int }

// Feed tracks one viewer on a scene and produces engine updates. It is not
// safe for concurrent use.
type Feed struct {
	scene *maps.Scene
	faces FaceResolver
	opts  Options
	rng   *rand.Rand
	log   *logrus.Entry

	X, Y    int
	joined  bool
	visible map[point]bool // world tiles currently in sight
	unknown map[string]bool
}

// NewFeed creates a feed positioned at the scene spawn.
func NewFeed(scene *maps.Scene, faces FaceResolver, opts Options) *Feed {
	return &Feed{
		scene:   scene,
		faces:   faces,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		log:     logger.Log.WithField("scene", scene.Name),
		X:       scene.Spawn.X,
		Y:       scene.Spawn.Y,
		visible: make(map[point]bool),
		unknown: make(map[string]bool),
	}
}

// Scene returns the scene being streamed.
func (f *Feed) Scene() *maps.Scene { return f.scene }

// origin is the world tile shown at viewport (0, 0).
func (f *Feed) origin() (int, int) {
	return f.X - f.opts.ViewWidth/2, f.Y - f.opts.ViewHeight/2
}

// ToScreen converts a world tile to viewport coordinates.
func (f *Feed) ToScreen(wx, wy int) (int, int) {
	ox, oy := f.origin()
	return wx - ox, wy - oy
}

// ToWorld converts viewport coordinates to a world tile.
func (f *Feed) ToWorld(sx, sy int) (int, int) {
	ox, oy := f.origin()
	return ox + sx, oy + sy
}

func (f *Feed) inSight(wx, wy int) bool {
	if f.opts.Sight <= 0 {
		return true
	}
	return math.Hypot(float64(wx-f.X), float64(wy-f.Y)) <= float64(f.opts.Sight)
}

// Join returns the updates for a fresh session: a reset followed by every
// tile in sight.
func (f *Feed) Join() []engine.Update {
	f.joined = true
	clear(f.visible)
	ups := []engine.Update{engine.ResetMap()}
	for sy := 0; sy < f.opts.ViewHeight; sy++ {
		for sx := 0; sx < f.opts.ViewWidth; sx++ {
			wx, wy := f.ToWorld(sx, sy)
			if !f.scene.InBounds(wx, wy) || !f.inSight(wx, wy) {
				continue
			}
			f.visible[point{wx, wy}] = true
			ups = append(ups, f.tile(sx, sy, wx, wy)...)
		}
	}
	return ups
}

// Move steps the viewer by (dx, dy). It returns false with no updates when
// the target tile is not walkable.
//
// Tiles in sight that scroll out of the viewport are fogged at their old
// position first, so they stay fog-of-war memory in the buffer margin.
func (f *Feed) Move(dx, dy int) ([]engine.Update, bool) {
	nx, ny := f.X+dx, f.Y+dy
	if !f.scene.IsWalkable(nx, ny) {
		return nil, false
	}
	if !f.joined {
		f.X, f.Y = nx, ny
		return f.Join(), true
	}

	var ups []engine.Update
	for sy := 0; sy < f.opts.ViewHeight; sy++ {
		for sx := 0; sx < f.opts.ViewWidth; sx++ {
			wx, wy := f.ToWorld(sx, sy)
			if f.visible[point{wx, wy}] && !f.inView(sx-dx, sy-dy) {
				ups = append(ups, engine.FogCleared(sx, sy))
			}
		}
	}
	f.X, f.Y = nx, ny
	ups = append(ups, engine.ScrollBy(dx, dy))

	now := make(map[point]bool, len(f.visible))
	for sy := 0; sy < f.opts.ViewHeight; sy++ {
		for sx := 0; sx < f.opts.ViewWidth; sx++ {
			wx, wy := f.ToWorld(sx, sy)
			p := point{wx, wy}
			if !f.scene.InBounds(wx, wy) {
				continue
			}
			switch {
			case f.inSight(wx, wy) && !f.visible[p]:
				ups = append(ups, engine.FogVisible(sx, sy))
				ups = append(ups, f.tile(sx, sy, wx, wy)...)
				now[p] = true
			case f.inSight(wx, wy):
				now[p] = true
			case f.visible[p]:
				ups = append(ups, engine.FogCleared(sx, sy))
			}
		}
	}
	f.visible = now
	return ups, true
}

func (f *Feed) inView(sx, sy int) bool {
	return sx >= 0 && sy >= 0 && sx < f.opts.ViewWidth && sy < f.opts.ViewHeight
}

// Joined reports whether the engine has been sent a full view since the
// feed was created or last invalidated.
func (f *Feed) Joined() bool { return f.joined }

// Invalidate marks the engine as out of step with the feed, e.g. after a
// dropped batch. The next Move resends the whole view.
func (f *Feed) Invalidate() { f.joined = false }

// tile returns the updates describing world tile (wx, wy) at viewport
// position (sx, sy): terrain, object pieces and darkness.
func (f *Feed) tile(sx, sy, wx, wy int) []engine.Update {
	var ups []engine.Update

	type slot struct {
		head, tail       mapbuf.FaceID
		headOff, tailOff mapbuf.Offset
		level            uint8
	}
	var layers [mapbuf.NumLayers]slot
	used := [mapbuf.NumLayers]bool{}

	t := f.scene.TerrainAt(wx, wy)
	if t.Layer < mapbuf.NumLayers {
		layers[t.Layer].head = f.face(t.Face)
		layers[t.Layer].level = t.SmoothLevel
		used[t.Layer] = true
	}
	for _, p := range f.scene.ObjectsAt(wx, wy) {
		if p.Layer < 0 || p.Layer >= mapbuf.NumLayers {
			continue
		}
		id := f.face(p.Face)
		off := mapbuf.Offset{X: uint8(p.OffX), Y: uint8(p.OffY)}
		if p.OffX == 0 && p.OffY == 0 {
			layers[p.Layer].head, layers[p.Layer].headOff = id, off
		} else {
			layers[p.Layer].tail, layers[p.Layer].tailOff = id, off
		}
		used[p.Layer] = true
	}

	for l := range layers {
		if !used[l] {
			continue
		}
		s := layers[l]
		ups = append(ups,
			engine.LayerFace(sx, sy, l, s.head, s.headOff, s.tail, s.tailOff),
			engine.SmoothLevel(sx, sy, l, s.level),
		)
	}
	ups = append(ups, engine.Darkness(sx, sy, f.scene.DarknessAt(wx, wy)))
	return ups
}

func (f *Feed) face(name string) mapbuf.FaceID {
	id, ok := f.faces.Lookup(name)
	if !ok {
		if !f.unknown[name] {
			f.unknown[name] = true
			f.log.WithField("face", name).Warn("scene references unknown face")
		}
		return mapbuf.NoFace
	}
	return id
}

// Flicker returns darkness updates jittering the tiles in sight that are
// lit by a light source. It returns nil when flicker is disabled.
func (f *Feed) Flicker() []engine.Update {
	if f.opts.Flicker == 0 {
		return nil
	}
	var ups []engine.Update
	for _, l := range f.scene.Lights {
		for wy := l.Y - l.Radius; wy <= l.Y+l.Radius; wy++ {
			for wx := l.X - l.Radius; wx <= l.X+l.Radius; wx++ {
				if !f.visible[point{wx, wy}] {
					continue
				}
				base := int(f.scene.DarknessAt(wx, wy))
				if base >= int(f.scene.Ambient) {
					continue
				}
				jitter := f.rng.Intn(int(f.opts.Flicker) + 1)
				d := min(255, base+jitter)
				sx, sy := f.ToScreen(wx, wy)
				ups = append(ups, engine.Darkness(sx, sy, uint8(d)))
			}
		}
	}
	return ups
}
