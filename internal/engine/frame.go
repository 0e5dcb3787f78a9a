package engine

import (
	"iter"

	"mapview/internal/light"
	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

// DrawCell is everything a renderer needs to compose one dirty cell.
type DrawCell struct {
	ScreenX, ScreenY int
	Layers           [mapbuf.NumLayers]mapbuf.LayerSlot
	Blends           [mapbuf.NumLayers][]smooth.Blend
	Light            light.Params
}

// Frame is one draw pass.
type Frame struct {
	Tick uint64
	View mapbuf.Viewport
	Mode light.Mode

	// ScrollX/ScrollY is how far the viewport moved since the previous
	// frame. Content still on screen moved by the negated amount.
	ScrollX, ScrollY int

	// Full means any state the renderer kept from earlier frames is stale;
	// every viewport cell is in Cells.
	Full bool

	Cells iter.Seq[DrawCell]
}

// Renderer consumes frames. Dirty flags are cleared only when Draw returns
// nil.
type Renderer interface {
	Draw(f Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame) error

func (fn RendererFunc) Draw(f Frame) error { return fn(f) }

// DirtyCells yields the draw parameters of every dirty viewport cell, row
// by row. Blends and lighting are computed as the sequence is consumed.
func (e *Engine) DirtyCells() iter.Seq[DrawCell] {
	return func(yield func(DrawCell) bool) {
		view := e.buf.Viewport()
		for sy := 0; sy < view.ViewH; sy++ {
			for sx := 0; sx < view.ViewW; sx++ {
				x, y := view.ToBuffer(sx, sy)
				c, err := e.buf.Cell(x, y)
				if err != nil || !c.Dirty {
					continue
				}
				if !yield(e.drawCell(sx, sy, x, y, c)) {
					return
				}
			}
		}
	}
}

func (e *Engine) drawCell(sx, sy, x, y int, c *mapbuf.Cell) DrawCell {
	dc := DrawCell{ScreenX: sx, ScreenY: sy, Layers: c.Layers}
	if e.smoothing {
		for layer := range c.Layers {
			if !c.Layers[layer].HasHead() {
				continue
			}
			res, err := smooth.Compute(e.buf, x, y, layer, e.faces)
			if err != nil {
				e.log.WithError(err).Debug("smoothing skipped")
				continue
			}
			if res.Unresolved > 0 {
				e.metrics.unresolved.Add(float64(res.Unresolved))
			}
			dc.Blends[layer] = res.Blends
		}
	}
	p, err := light.Resolve(e.buf, x, y, e.mode, e.tileSize)
	if err != nil {
		e.log.WithError(err).Debug("lighting skipped")
	}
	dc.Light = p
	return dc
}

// ClearDirty clears the dirty and resmooth flags of every viewport cell.
func (e *Engine) ClearDirty() {
	e.buf.ForEachVisible(func(_, _ int, c *mapbuf.Cell) {
		c.Dirty = false
		c.NeedsResmooth = false
	})
}

// promoteResmooth turns pending blend recomputation into a redraw, and
// counts the dirty cells.
func (e *Engine) promoteResmooth() int {
	n := 0
	e.buf.ForEachVisible(func(_, _ int, c *mapbuf.Cell) {
		if c.NeedsResmooth {
			c.Dirty = true
		}
		if c.Dirty {
			n++
		}
	})
	return n
}
