package light

// Field is a per-pixel opacity map for one tile.
type Field struct {
	W, H int
	Pix  []uint8 // row-major, W*H
}

// NewField interpolates the samples across a w x h tile. Horizontally the
// left half runs from the west sample at the edge to the centre at the
// midline, the right half from the centre to the east sample; vertically
// the same with north and south. The two axes are averaged.
func NewField(s Samples, w, h int) *Field {
	f := &Field{W: w, H: h, Pix: make([]uint8, w*h)}

	horiz := make([]int, w)
	for px := 0; px < w; px++ {
		horiz[px] = axisValue(int(s.West), int(s.Center), int(s.East), px, w)
	}
	for py := 0; py < h; py++ {
		v := axisValue(int(s.North), int(s.Center), int(s.South), py, h)
		row := f.Pix[py*w : (py+1)*w]
		for px := range row {
			row[px] = uint8((horiz[px] + v) / 2)
		}
	}
	return f
}

// At returns the opacity at pixel (x, y).
func (f *Field) At(x, y int) uint8 {
	return f.Pix[y*f.W+x]
}

// Constant reports whether every pixel has the same opacity.
func (f *Field) Constant() bool {
	for _, p := range f.Pix {
		if p != f.Pix[0] {
			return false
		}
	}
	return true
}

// axisValue interpolates from lo (at 0) to mid (at size/2) to hi (at size).
func axisValue(lo, mid, hi, pos, size int) int {
	half := size / 2
	if half == 0 {
		return mid
	}
	if pos < half {
		return lerp(lo, mid, pos, half)
	}
	return lerp(mid, hi, pos-half, size-half)
}

func lerp(a, b, num, den int) int {
	return a + (b-a)*num/den
}
