package mapbuf

// Margin is the headroom kept between the viewport and the left/top edge
// of the buffer. Multi-tile objects extend up and left from their head
// tile, so their tails need buffer cells beyond the visible area.
const Margin = 2

// ScrollResult describes what a Scroll did to the buffer.
type ScrollResult struct {
	Recentered     bool
	ShiftX, ShiftY int // content shift applied by the recenter
	Exposed        int // cells newly entering the viewport
}

// NeedsRecenter reports whether moving the viewport by (dx, dy) would put
// it within Margin of the left/top edge or past the right/bottom edge.
func (b *Buffer) NeedsRecenter(dx, dy int) bool {
	nx := b.view.CamX + dx
	ny := b.view.CamY + dy
	return nx < Margin || ny < Margin ||
		nx+b.view.ViewW > b.width || ny+b.view.ViewH > b.height
}

// Scroll moves the viewport by (dx, dy). Cells that enter the viewport are
// marked dirty; cells that stay visible keep their state and flags.
func (b *Buffer) Scroll(dx, dy int) ScrollResult {
	var res ScrollResult
	if b.NeedsRecenter(dx, dy) {
		res.ShiftX, res.ShiftY = b.recenter(dx, dy)
		res.Recentered = res.ShiftX != 0 || res.ShiftY != 0
	}

	old := b.view
	b.view.CamX += dx
	b.view.CamY += dy

	b.ForEachVisible(func(sx, sy int, c *Cell) {
		bx, by := b.view.ToBuffer(sx, sy)
		if old.Contains(bx, by) {
			return
		}
		c.Dirty = true
		c.NeedsResmooth = true
		res.Exposed++
	})
	return res
}

// Recenter shifts the buffer contents so the viewport is away from the
// edges. After it returns NeedsRecenter(0, 0) is false.
func (b *Buffer) Recenter() (shiftX, shiftY int) {
	return b.recenter(0, 0)
}

// recenter centers the viewport as it will be after a pending move of
// (dx, dy). Cells whose shifted position falls outside the buffer are
// dropped.
func (b *Buffer) recenter(dx, dy int) (int, int) {
	shiftX := axisShift(b.view.CamX+dx, b.view.ViewW, b.width)
	shiftY := axisShift(b.view.CamY+dy, b.view.ViewH, b.height)
	if shiftX == 0 && shiftY == 0 {
		return 0, 0
	}

	for y := 0; y < b.height; y++ {
		ny := y + shiftY
		if ny < 0 || ny >= b.height {
			continue
		}
		for x := 0; x < b.width; x++ {
			nx := x + shiftX
			if nx < 0 || nx >= b.width {
				continue
			}
			b.scratch[b.index(nx, ny)] = b.cells[b.index(x, y)]
		}
	}

	b.cells, b.scratch = b.scratch, b.cells
	clear(b.scratch)

	b.view.CamX += shiftX
	b.view.CamY += shiftY
	return shiftX, shiftY
}

// axisShift returns how far to move content along one axis. Only axes
// that are out of margin, or within a quarter of the extent of an edge,
// are shifted; the rest stay put to avoid a full copy on every step.
func axisShift(pos, view, extent int) int {
	outside := pos < Margin || pos+view > extent
	quarter := extent / 4
	near := pos < quarter || extent-(pos+view) < quarter
	if !outside && !near {
		return 0
	}
	return center(extent, view) - pos
}
