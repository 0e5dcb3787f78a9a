// Package engine owns one session's map rendering state: the virtual map
// buffer, the lighting mode and the face lookup used for smoothing. Updates
// arrive either as direct calls on the tick goroutine or through the queue,
// and every tick hands the dirty cells to a Renderer.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mapview/internal/light"
	"mapview/internal/logger"
	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultQueueSize    = 1024
	DefaultTileSize     = 32
)

// Options configures a new Engine.
type Options struct {
	Width, Height         int // buffer size in cells
	ViewWidth, ViewHeight int

	Faces     smooth.FaceLookup // nil disables smoothing contributions
	Lighting  light.Mode
	Smoothing bool
	TileSize  int // pixel edge used for per-pixel lighting fields

	QueueSize    int // batches, not single updates
	TickInterval time.Duration

	Metrics *Metrics
	Log     *logrus.Entry
}

// Engine is the per-session map state. Its methods other than Enqueue must
// be called from a single goroutine: the one running Run, or the caller of
// Tick.
type Engine struct {
	buf       *mapbuf.Buffer
	faces     smooth.FaceLookup
	mode      light.Mode
	smoothing bool
	tileSize  int

	renderer Renderer
	queue    chan []Update
	metrics  *Metrics
	log      *logrus.Entry

	// screen-space scroll since the last successful draw
	scrollX, scrollY int
	fullRedraw       bool

	// drawing counts nested draw passes; redraw requests made while it is
	// non-zero are dropped
	drawing   int
	tickCount uint64

	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New allocates the buffer, attaches a centered viewport and returns an
// engine drawing into r. r may be nil; frames are then withheld and cells
// stay dirty until SetRenderer is called.
func New(opts Options, r Renderer) (*Engine, error) {
	buf, err := mapbuf.New(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	if err := buf.SetViewSize(opts.ViewWidth, opts.ViewHeight); err != nil {
		return nil, err
	}

	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Log == nil {
		opts.Log = logger.Log.WithField("component", "engine")
	}
	if opts.Faces == nil {
		opts.Faces = noFaces{}
	}

	return &Engine{
		buf:        buf,
		faces:      opts.Faces,
		mode:       opts.Lighting,
		smoothing:  opts.Smoothing,
		tileSize:   opts.TileSize,
		renderer:   r,
		queue:      make(chan []Update, opts.QueueSize),
		metrics:    opts.Metrics,
		log:        opts.Log,
		fullRedraw: true,
		interval:   opts.TickInterval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Buffer exposes the underlying buffer for inspection.
func (e *Engine) Buffer() *mapbuf.Buffer { return e.buf }

// Viewport returns the current viewport.
func (e *Engine) Viewport() mapbuf.Viewport { return e.buf.Viewport() }

// LightingMode returns the active lighting mode.
func (e *Engine) LightingMode() light.Mode { return e.mode }

// Smoothing reports whether edge blending is on.
func (e *Engine) Smoothing() bool { return e.smoothing }

// SetRenderer replaces the renderer. The next frame is a full redraw.
func (e *Engine) SetRenderer(r Renderer) {
	e.renderer = r
	e.fullRedraw = true
	e.buf.MarkViewportDirty()
}

// cellAt translates viewport-relative coordinates and returns the buffer
// position and cell. Coordinates outside the viewport are accepted as long
// as they land in the buffer; that is how fog-of-war margin cells are fed.
func (e *Engine) cellAt(sx, sy int) (int, int, *mapbuf.Cell, error) {
	x, y := e.buf.ToBufferCoords(sx, sy)
	c, err := e.buf.Cell(x, y)
	if err != nil {
		return 0, 0, nil, err
	}
	return x, y, c, nil
}

func checkLayer(layer int) error {
	if layer < 0 || layer >= mapbuf.NumLayers {
		return fmt.Errorf("layer %d: %w", layer, mapbuf.ErrOutOfBounds)
	}
	return nil
}

// markResmooth flags (x, y) and its eight neighbours for blend
// recomputation, since each of their blends depends on this cell.
func (e *Engine) markResmooth(x, y int, c *mapbuf.Cell) {
	c.Dirty = true
	c.NeedsResmooth = true
	for _, d := range mapbuf.Directions {
		if n, ok := e.buf.Neighbor(x, y, d); ok {
			n.NeedsResmooth = true
		}
	}
}

// SetLayerFace stores the head and tail faces of one layer.
func (e *Engine) SetLayerFace(sx, sy, layer int, head mapbuf.FaceID, headOff mapbuf.Offset, tail mapbuf.FaceID, tailOff mapbuf.Offset) error {
	if err := checkLayer(layer); err != nil {
		return err
	}
	x, y, c, err := e.cellAt(sx, sy)
	if err != nil {
		return err
	}
	slot := &c.Layers[layer]
	slot.Head = head
	slot.HeadOffset = headOff
	slot.Tail = tail
	slot.TailOffset = tailOff
	e.markResmooth(x, y, c)
	return nil
}

// SetSmoothLevel sets the terrain priority of one layer.
func (e *Engine) SetSmoothLevel(sx, sy, layer int, level uint8) error {
	if err := checkLayer(layer); err != nil {
		return err
	}
	x, y, c, err := e.cellAt(sx, sy)
	if err != nil {
		return err
	}
	c.Layers[layer].SmoothLevel = level
	e.markResmooth(x, y, c)
	return nil
}

// SetDarkness stores the darkness of a cell. Cells whose shading depends on
// it are marked dirty too: the orthogonal neighbours in per-pixel mode, and
// any neighbour without darkness of its own, which borrows this value.
func (e *Engine) SetDarkness(sx, sy int, darkness uint8) error {
	x, y, c, err := e.cellAt(sx, sy)
	if err != nil {
		return err
	}
	c.Darkness = darkness
	c.HasDarkness = true
	c.Dirty = true

	if e.mode == light.Off {
		return nil
	}
	for _, d := range mapbuf.Directions {
		n, ok := e.buf.Neighbor(x, y, d)
		if !ok {
			continue
		}
		if !n.HasDarkness || (e.mode == light.PerPixel && d.IsOrthogonal()) {
			n.Dirty = true
		}
	}
	return nil
}

// MarkFogCleared turns a cell into fog-of-war memory: its faces are kept
// but it is drawn as no longer in sight.
func (e *Engine) MarkFogCleared(sx, sy int) error {
	_, _, c, err := e.cellAt(sx, sy)
	if err != nil {
		return err
	}
	if !c.FogCleared {
		c.FogCleared = true
		c.Dirty = true
	}
	return nil
}

// MarkFogVisible brings a fogged cell back into sight.
func (e *Engine) MarkFogVisible(sx, sy int) error {
	_, _, c, err := e.cellAt(sx, sy)
	if err != nil {
		return err
	}
	if c.FogCleared {
		c.FogCleared = false
		c.Dirty = true
	}
	return nil
}

// Scroll moves the viewport, recentering the buffer when needed.
func (e *Engine) Scroll(dx, dy int) mapbuf.ScrollResult {
	res := e.buf.Scroll(dx, dy)
	e.scrollX += dx
	e.scrollY += dy
	if res.Recentered {
		e.metrics.recenters.Inc()
		e.log.WithFields(logrus.Fields{
			"shift_x": res.ShiftX,
			"shift_y": res.ShiftY,
		}).Debug("buffer recentered")
	}
	return res
}

// Reset zeroes every cell and recenters the viewport. Used on reconnect.
func (e *Engine) Reset() {
	e.buf.Reset()
	e.scrollX, e.scrollY = 0, 0
	e.fullRedraw = true
	e.log.Debug("buffer reset")
}

// SetLightingMode switches the lighting mode and redraws the viewport.
func (e *Engine) SetLightingMode(m light.Mode) {
	if m == e.mode {
		return
	}
	e.mode = m
	e.buf.MarkViewportDirty()
}

// SetSmoothing turns edge blending on or off.
func (e *Engine) SetSmoothing(on bool) {
	if on == e.smoothing {
		return
	}
	e.smoothing = on
	e.buf.MarkViewportDirty()
}

// RequestRedraw marks the whole viewport dirty. It returns false, and does
// nothing, while a draw pass is in progress.
func (e *Engine) RequestRedraw() bool {
	if e.drawing > 0 {
		return false
	}
	e.buf.MarkViewportDirty()
	e.fullRedraw = true
	return true
}

// TakeScroll returns the screen-space scroll accumulated since the last
// call and resets it.
func (e *Engine) TakeScroll() (dx, dy int) {
	dx, dy = e.scrollX, e.scrollY
	e.scrollX, e.scrollY = 0, 0
	return dx, dy
}

type noFaces struct{}

func (noFaces) SmoothFace(mapbuf.FaceID) (mapbuf.FaceID, bool) { return mapbuf.NoFace, false }
func (noFaces) Loaded(mapbuf.FaceID) bool                      { return false }
