package render

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"mapview/internal/engine"
)

// Canvas is a screen-space pixel cache of the viewport. It implements
// engine.Renderer: full frames clear it, scrolls shift it, and each dirty
// cell is recomposed into its cellPx square.
type Canvas struct {
	comp         *Composer
	cellPx       int
	viewW, viewH int

	Pixels *image.RGBA
	tile   *image.RGBA // composer scratch, full tile size
	small  *image.RGBA // tile scaled to cellPx
}

// NewCanvas creates a viewW x viewH tile canvas drawing each tile at cellPx
// pixels. A cellPx of 0 keeps the composer tile size.
func NewCanvas(comp *Composer, viewW, viewH, cellPx int) *Canvas {
	ts := comp.TileSize()
	if cellPx <= 0 {
		cellPx = ts
	}
	c := &Canvas{
		comp:   comp,
		cellPx: cellPx,
		viewW:  viewW,
		viewH:  viewH,
		Pixels: image.NewRGBA(image.Rect(0, 0, viewW*cellPx, viewH*cellPx)),
		tile:   image.NewRGBA(image.Rect(0, 0, ts, ts)),
	}
	if cellPx != ts {
		c.small = image.NewRGBA(image.Rect(0, 0, cellPx, cellPx))
	}
	return c
}

// CellPixels returns the pixel edge of one tile on the canvas.
func (c *Canvas) CellPixels() int { return c.cellPx }

// Draw implements engine.Renderer.
func (c *Canvas) Draw(f engine.Frame) error {
	if f.Full {
		draw.Draw(c.Pixels, c.Pixels.Bounds(), image.Black, image.Point{}, draw.Src)
	} else if f.ScrollX != 0 || f.ScrollY != 0 {
		c.shift(-f.ScrollX*c.cellPx, -f.ScrollY*c.cellPx)
	}

	for dc := range f.Cells {
		if dc.ScreenX >= c.viewW || dc.ScreenY >= c.viewH {
			continue
		}
		c.comp.Compose(c.tile, dc)
		src := c.tile
		if c.small != nil {
			xdraw.ApproxBiLinear.Scale(c.small, c.small.Bounds(), c.tile, c.tile.Bounds(), xdraw.Src, nil)
			src = c.small
		}
		at := image.Pt(dc.ScreenX*c.cellPx, dc.ScreenY*c.cellPx)
		draw.Draw(c.Pixels, src.Bounds().Add(at), src, image.Point{}, draw.Src)
	}
	return nil
}

// shift moves the pixel cache by (dx, dy) pixels. Uncovered pixels are
// black until their cells are redrawn.
func (c *Canvas) shift(dx, dy int) {
	shifted := image.NewRGBA(c.Pixels.Bounds())
	draw.Draw(shifted, shifted.Bounds().Add(image.Pt(dx, dy)), c.Pixels, image.Point{}, draw.Src)
	c.Pixels = shifted
}
