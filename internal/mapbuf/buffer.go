package mapbuf

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned for coordinates outside the buffer or viewport.
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrInvalidDimensions is returned when a buffer or viewport size is unusable.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// Buffer is the virtual map: a fixed-size grid of cells, larger than the
// viewport, plus the viewport cursor. All cells live in one flat slice.
type Buffer struct {
	width, height int
	cells         []Cell
	scratch       []Cell // recenter target, always zeroed between uses
	view          Viewport
}

// New allocates a width x height buffer with every cell zeroed.
func New(width, height int) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("buffer %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	return &Buffer{
		width:   width,
		height:  height,
		cells:   make([]Cell, width*height),
		scratch: make([]Cell, width*height),
	}, nil
}

// Width returns the buffer width in cells.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in cells.
func (b *Buffer) Height() int { return b.height }

// Viewport returns the current viewport.
func (b *Buffer) Viewport() Viewport { return b.view }

// SetViewSize attaches a viewport of w x h cells and centers it. The buffer
// must leave at least Margin cells around a centered viewport.
func (b *Buffer) SetViewSize(w, h int) error {
	if w < 1 || h < 1 || b.width < w+2*Margin || b.height < h+2*Margin {
		return fmt.Errorf("viewport %dx%d in buffer %dx%d: %w",
			w, h, b.width, b.height, ErrInvalidDimensions)
	}
	b.view = Viewport{
		CamX:  center(b.width, w),
		CamY:  center(b.height, h),
		ViewW: w,
		ViewH: h,
	}
	b.MarkViewportDirty()
	return nil
}

// InBounds reports whether (x, y) is a valid buffer coordinate.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

func (b *Buffer) index(x, y int) int {
	return y*b.width + x
}

// Cell returns the cell at buffer coordinate (x, y). This is the only
// place buffer coordinates are turned into storage offsets.
func (b *Buffer) Cell(x, y int) (*Cell, error) {
	if !b.InBounds(x, y) {
		return nil, fmt.Errorf("cell (%d,%d) in %dx%d buffer: %w", x, y, b.width, b.height, ErrOutOfBounds)
	}
	return &b.cells[b.index(x, y)], nil
}

// Neighbor returns the cell next to (x, y) in direction d, or false when
// that cell lies outside the buffer.
func (b *Buffer) Neighbor(x, y int, d Direction) (*Cell, bool) {
	dx, dy := d.Delta()
	c, err := b.Cell(x+dx, y+dy)
	if err != nil {
		return nil, false
	}
	return c, true
}

// ToBufferCoords translates a viewport position to a buffer position.
// It does not bounds-check.
func (b *Buffer) ToBufferCoords(sx, sy int) (int, int) {
	return b.view.ToBuffer(sx, sy)
}

// ScreenCell returns the cell shown at viewport position (sx, sy).
func (b *Buffer) ScreenCell(sx, sy int) (*Cell, error) {
	if !b.view.ContainsScreen(sx, sy) {
		return nil, fmt.Errorf("screen (%d,%d) in %dx%d viewport: %w", sx, sy, b.view.ViewW, b.view.ViewH, ErrOutOfBounds)
	}
	return b.Cell(b.view.ToBuffer(sx, sy))
}

// ForEachVisible calls fn for every viewport position, row by row.
func (b *Buffer) ForEachVisible(fn func(sx, sy int, c *Cell)) {
	for sy := 0; sy < b.view.ViewH; sy++ {
		for sx := 0; sx < b.view.ViewW; sx++ {
			x, y := b.view.ToBuffer(sx, sy)
			if !b.InBounds(x, y) {
				continue
			}
			fn(sx, sy, &b.cells[b.index(x, y)])
		}
	}
}

// MarkViewportDirty flags every visible cell for redraw.
func (b *Buffer) MarkViewportDirty() {
	b.ForEachVisible(func(_, _ int, c *Cell) {
		c.Dirty = true
		c.NeedsResmooth = true
	})
}

// Clear zeroes every cell. The viewport is left where it is.
func (b *Buffer) Clear() {
	clear(b.cells)
}

// Reset zeroes every cell and moves the viewport back to the buffer center.
func (b *Buffer) Reset() {
	b.Clear()
	b.view.CamX = center(b.width, b.view.ViewW)
	b.view.CamY = center(b.height, b.view.ViewH)
	b.MarkViewportDirty()
}

// center returns the cursor position that centers a view of size view
// within extent.
func center(extent, view int) int {
	return (extent - view) / 2
}
