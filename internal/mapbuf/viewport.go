package mapbuf

// Viewport is the visible window into the virtual map.
type Viewport struct {
	CamX, CamY   int // buffer coordinate shown at screen (0,0)
	ViewW, ViewH int // viewport size in cells
}

// ToBuffer converts a screen position to a buffer position.
func (v Viewport) ToBuffer(sx, sy int) (int, int) {
	return v.CamX + sx, v.CamY + sy
}

// ToScreen converts a buffer position to a screen position.
// Returns false if the buffer position is outside the viewport.
func (v Viewport) ToScreen(bx, by int) (int, int, bool) {
	sx := bx - v.CamX
	sy := by - v.CamY
	if !v.ContainsScreen(sx, sy) {
		return -1, -1, false
	}
	return sx, sy, true
}

// ContainsScreen reports whether (sx, sy) is inside the viewport.
func (v Viewport) ContainsScreen(sx, sy int) bool {
	return sx >= 0 && sy >= 0 && sx < v.ViewW && sy < v.ViewH
}

// Contains reports whether buffer position (bx, by) is visible.
func (v Viewport) Contains(bx, by int) bool {
	_, _, ok := v.ToScreen(bx, by)
	return ok
}
