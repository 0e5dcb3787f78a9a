// Package viewer shows a scene in a desktop window. It drives the same
// engine and feed as an SSH session, drawing frames into a Canvas that is
// uploaded to an ebiten image every frame.
package viewer

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/logger"
	"mapview/internal/maps"
	"mapview/internal/render"
	"mapview/internal/world"
)

const hudHeight = 18

// Game implements ebiten.Game.
type Game struct {
	eng    *engine.Engine
	feed   *world.Feed
	canvas *render.Canvas
	img    *ebiten.Image
	scene  string

	tickEvery int // ebiten updates per engine tick
	frames    int
	prevKeys  map[ebiten.Key]bool
}

// New builds the engine, feed and canvas for cfg's viewport.
func New(cfg *config.Config, reg *faces.Registry, scene *maps.Scene, metrics *engine.Metrics) (*Game, error) {
	viewW, viewH := cfg.Map.ViewWidth, cfg.Map.ViewHeight
	bufW, bufH := cfg.Map.BufferSize()
	canvas := render.NewCanvas(render.NewComposer(reg), viewW, viewH, 0)

	eng, err := engine.New(engine.Options{
		Width:        bufW,
		Height:       bufH,
		ViewWidth:    viewW,
		ViewHeight:   viewH,
		Faces:        reg,
		Lighting:     cfg.LightingMode(),
		Smoothing:    cfg.SmoothingEnabled(),
		TileSize:     reg.TileSize(),
		QueueSize:    cfg.Engine.QueueSize,
		TickInterval: cfg.TickInterval(),
		Metrics:      metrics,
		Log:          logger.Log.WithField("component", "viewer"),
	}, canvas)
	if err != nil {
		return nil, err
	}

	feed := world.NewFeed(scene, reg, world.Options{
		ViewWidth:  viewW,
		ViewHeight: viewH,
		Sight:      cfg.Map.Sight,
		Flicker:    uint8(cfg.Map.Flicker),
		Seed:       time.Now().UnixNano(),
	})
	eng.EnqueueAll(feed.Join())

	b := canvas.Pixels.Bounds()
	return &Game{
		eng:       eng,
		feed:      feed,
		canvas:    canvas,
		img:       ebiten.NewImage(b.Dx(), b.Dy()),
		scene:     scene.Name,
		tickEvery: max(1, int(cfg.TickInterval()*time.Duration(ebiten.TPS())/time.Second)),
		prevKeys:  make(map[ebiten.Key]bool),
	}, nil
}

// Size returns the window size in pixels.
func (g *Game) Size() (int, int) {
	b := g.canvas.Pixels.Bounds()
	return b.Dx(), b.Dy() + hudHeight
}

func (g *Game) pressed(k ebiten.Key, cur map[ebiten.Key]bool) bool {
	cur[k] = ebiten.IsKeyPressed(k)
	return cur[k] && !g.prevKeys[k]
}

func (g *Game) handleInput() error {
	cur := map[ebiten.Key]bool{}
	moves := []struct {
		keys   []ebiten.Key
		dx, dy int
	}{
		{[]ebiten.Key{ebiten.KeyW, ebiten.KeyArrowUp}, 0, -1},
		{[]ebiten.Key{ebiten.KeyS, ebiten.KeyArrowDown}, 0, 1},
		{[]ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft}, -1, 0},
		{[]ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight}, 1, 0},
	}
	for _, m := range moves {
		hit := false
		for _, k := range m.keys {
			if g.pressed(k, cur) {
				hit = true
			}
		}
		if hit {
			if ups, ok := g.feed.Move(m.dx, m.dy); ok && !g.eng.EnqueueAll(ups) {
				g.feed.Invalidate()
			}
		}
	}

	if g.pressed(ebiten.KeyL, cur) {
		g.eng.Enqueue(engine.Lighting(g.eng.LightingMode().Next()))
	}
	if g.pressed(ebiten.KeyT, cur) {
		g.eng.SetSmoothing(!g.eng.Smoothing())
	}
	if g.pressed(ebiten.KeyR, cur) {
		g.eng.Enqueue(engine.Redraw())
	}
	quit := g.pressed(ebiten.KeyQ, cur) || g.pressed(ebiten.KeyEscape, cur)
	g.prevKeys = cur
	if quit {
		return ebiten.Termination
	}
	return nil
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if err := g.handleInput(); err != nil {
		return err
	}
	g.frames++
	if g.frames%g.tickEvery != 0 {
		return nil
	}
	if !g.feed.Joined() && !g.eng.EnqueueAll(g.feed.Join()) {
		g.feed.Invalidate()
	}
	if g.feed.Joined() {
		g.eng.EnqueueAll(g.feed.Flicker())
	}
	if err := g.eng.Tick(); err != nil {
		logger.Log.WithError(err).Warn("viewer tick failed")
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 10, G: 10, B: 15, A: 255})
	g.img.WritePixels(g.canvas.Pixels.Pix)
	screen.DrawImage(g.img, nil)

	smooth := "off"
	if g.eng.Smoothing() {
		smooth = "on"
	}
	_, h := g.Size()
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s (%d,%d) light:%s smooth:%s  [WASD] move [L]ight [T]smooth [R]edraw [Q]uit",
		g.scene, g.feed.X, g.feed.Y, g.eng.LightingMode(), smooth), 4, h-hudHeight+2)
}

// Layout implements ebiten.Game.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.Size()
}
