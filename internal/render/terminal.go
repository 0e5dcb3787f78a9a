package render

import (
	"fmt"
	"io"
	"strings"

	"mapview/internal/engine"
)

const (
	// HUDRows is the number of status rows below the map.
	HUDRows = 1

	// DefaultTilePixels is the on-screen pixel edge of a tile: that many
	// columns and half as many rows.
	DefaultTilePixels = 4
)

// Cell represents a single terminal cell with full RGB color.
type Cell struct {
	Ch            rune
	FgR, FgG, FgB uint8
	BgR, BgG, BgB uint8
	Bold          bool
}

var sentinel = Cell{Ch: '\x00', FgR: 255, BgB: 255, Bold: true}

// Terminal is a per-session double-buffer diff renderer. It keeps the
// composed map as a screen-space pixel image, shifts it when the engine
// scrolls, recomposes only the dirty cells, and writes only the terminal
// cells that changed.
type Terminal struct {
	out  io.Writer
	comp *Composer

	tilePx        int
	width, height int // terminal size in cells
	viewW, viewH  int // map viewport in tiles

	canvas *Canvas

	current    [][]Cell
	next       [][]Cell
	firstFrame bool
	status     string
}

// NewTerminal creates a renderer for a width x height terminal.
func NewTerminal(out io.Writer, comp *Composer, width, height, tilePx int) *Terminal {
	if tilePx < 2 {
		tilePx = DefaultTilePixels
	}
	tilePx &^= 1 // two pixel rows per terminal row
	t := &Terminal{
		out:    out,
		comp:   comp,
		tilePx: tilePx,
	}
	t.Resize(width, height)
	return t
}

// ViewSize returns the number of map tiles that fit the terminal.
func (t *Terminal) ViewSize() (int, int) { return t.viewW, t.viewH }

// Resize adjusts the renderer for a new terminal size. The next frame
// repaints everything.
func (t *Terminal) Resize(width, height int) {
	t.width = width
	t.height = height
	t.viewW = max(1, width/t.tilePx)
	t.viewH = max(1, (height-HUDRows)/(t.tilePx/2))
	t.canvas = NewCanvas(t.comp, t.viewW, t.viewH, t.tilePx)
	t.current = makeCells(width, height, sentinel)
	t.next = makeCells(width, height, Cell{})
	t.firstFrame = true
}

func makeCells(w, h int, fill Cell) [][]Cell {
	buf := make([][]Cell, h)
	for y := range buf {
		buf[y] = make([]Cell, w)
		for x := range buf[y] {
			buf[y][x] = fill
		}
	}
	return buf
}

// SetStatus replaces the HUD text shown on the next frame.
func (t *Terminal) SetStatus(s string) { t.status = s }

// Init switches to the alternate screen and hides the cursor.
func (t *Terminal) Init() error {
	_, err := io.WriteString(t.out, EnableAltScreen()+HideCursor()+ClearScreen())
	return err
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	_, err := io.WriteString(t.out, Reset+ShowCursor()+DisableAltScreen())
	return err
}

// Draw implements engine.Renderer.
func (t *Terminal) Draw(f engine.Frame) error {
	if err := t.canvas.Draw(f); err != nil {
		return err
	}
	_, err := io.WriteString(t.out, t.frame())
	return err
}

// frame converts the pixel cache and HUD into terminal cells and returns
// the ANSI output for the cells that changed.
func (t *Terminal) frame() string {
	bg := Cell{Ch: ' ', BgR: 10, BgG: 10, BgB: 15}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			t.next[y][x] = bg
		}
	}

	pixels := t.canvas.Pixels
	pb := pixels.Bounds()
	for row := 0; row < pb.Dy()/2 && row < t.height-HUDRows; row++ {
		for col := 0; col < pb.Dx() && col < t.width; col++ {
			up := pixels.RGBAAt(col, 2*row)
			lo := pixels.RGBAAt(col, 2*row+1)
			t.next[row][col] = Cell{
				Ch:  HalfBlock,
				FgR: up.R, FgG: up.G, FgB: up.B,
				BgR: lo.R, BgG: lo.G, BgB: lo.B,
			}
		}
	}
	t.drawHUD()

	var sb strings.Builder
	sb.Grow(16384)

	lastRow, lastCol := -1, -1
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			nc := t.next[y][x]
			if t.firstFrame || nc != t.current[y][x] {
				if y != lastRow || x != lastCol {
					sb.WriteString(MoveTo(y+1, x+1))
				}
				WriteCellSGR(&sb, nc)
				lastRow = y
				lastCol = x + 1
			}
		}
	}
	if sb.Len() > 0 {
		sb.WriteString(Reset)
	}

	t.current, t.next = t.next, t.current
	t.firstFrame = false
	return sb.String()
}

func (t *Terminal) drawHUD() {
	hudY := t.height - HUDRows
	if hudY < 0 {
		return
	}
	text := []rune(t.status)
	if t.comp.Missing > 0 {
		text = append(text, []rune(fmt.Sprintf("  missing faces: %d", t.comp.Missing))...)
	}
	for x := 0; x < t.width; x++ {
		ch := ' '
		if x < len(text) {
			ch = text[x]
		}
		t.next[hudY][x] = Cell{Ch: ch, FgR: 220, FgG: 220, FgB: 200, BgR: 30, BgG: 25, BgB: 45}
	}
}
