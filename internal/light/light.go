// Package light turns stored per-cell darkness into render opacity, either
// flat per tile or as a per-pixel field interpolated toward the four
// orthogonal neighbours.
package light

import (
	"fmt"
	"strings"

	"mapview/internal/mapbuf"
)

// Mode selects the lighting fidelity.
type Mode int

const (
	Off Mode = iota
	PerTile
	PerPixel
)

// FullDark is the darkness at or above which a tile is drawn solid black.
const FullDark = 255

var modeNames = map[Mode]string{
	Off:      "off",
	PerTile:  "per_tile",
	PerPixel: "per_pixel",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	return (m + 1) % 3
}

// ParseMode parses "off", "per_tile" or "per_pixel" (dashes allowed).
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m, name := range modeNames {
		if name == norm {
			return m, nil
		}
	}
	return Off, fmt.Errorf("unknown lighting mode %q", s)
}

// Samples are the darkness values feeding a per-pixel field.
type Samples struct {
	Center, North, East, South, West uint8
}

// Uniform reports whether all five samples are equal.
func (s Samples) Uniform() bool {
	return s.North == s.Center && s.East == s.Center &&
		s.South == s.Center && s.West == s.Center
}

// Params are the lighting inputs the render adapter needs for one cell.
type Params struct {
	Mode    Mode
	Fogged  bool  // fog-of-war memory; darkness is not applied
	Opacity uint8 // flat opacity, 0 = transparent, 255 = black
	Opaque  bool  // fully dark; nothing underneath needs drawing
	Field   *Field
}

// TileOpacity is the flat per-tile opacity for a darkness value.
func TileOpacity(darkness uint8) uint8 {
	return darkness
}

// CellDarkness returns the darkness to use for the cell at (x, y). A cell
// that never received darkness borrows it from the nearest neighbour that
// has one, orthogonals (N, E, S, W) before diagonals, and is fully lit
// otherwise.
func CellDarkness(buf *mapbuf.Buffer, x, y int) (uint8, error) {
	c, err := buf.Cell(x, y)
	if err != nil {
		return 0, err
	}
	if c.HasDarkness {
		return c.Darkness, nil
	}
	for _, d := range mapbuf.Orthogonal {
		if n, ok := buf.Neighbor(x, y, d); ok && n.HasDarkness {
			return n.Darkness, nil
		}
	}
	for _, d := range mapbuf.Directions {
		if d.IsOrthogonal() {
			continue
		}
		if n, ok := buf.Neighbor(x, y, d); ok && n.HasDarkness {
			return n.Darkness, nil
		}
	}
	return 0, nil
}

// SamplesAt gathers the centre and orthogonal darkness for (x, y).
// Neighbours without darkness, or outside the buffer, take the centre value.
func SamplesAt(buf *mapbuf.Buffer, x, y int) (Samples, error) {
	d0, err := CellDarkness(buf, x, y)
	if err != nil {
		return Samples{}, err
	}
	get := func(d mapbuf.Direction) uint8 {
		if n, ok := buf.Neighbor(x, y, d); ok && n.HasDarkness {
			return n.Darkness
		}
		return d0
	}
	return Samples{
		Center: d0,
		North:  get(mapbuf.North),
		East:   get(mapbuf.East),
		South:  get(mapbuf.South),
		West:   get(mapbuf.West),
	}, nil
}

// Resolve computes the lighting parameters for buffer cell (x, y).
// tileSize is the pixel edge of a tile, used for per-pixel fields.
func Resolve(buf *mapbuf.Buffer, x, y int, mode Mode, tileSize int) (Params, error) {
	c, err := buf.Cell(x, y)
	if err != nil {
		return Params{}, err
	}
	p := Params{Mode: mode}
	if v, _ := c.Visibility(); v.Fogged {
		p.Fogged = true
		return p, nil
	}

	switch mode {
	case PerTile:
		d0, err := CellDarkness(buf, x, y)
		if err != nil {
			return p, err
		}
		p.Opacity = TileOpacity(d0)
		p.Opaque = d0 >= FullDark
	case PerPixel:
		s, err := SamplesAt(buf, x, y)
		if err != nil {
			return p, err
		}
		p.Opacity = TileOpacity(s.Center)
		if s.Uniform() {
			p.Opaque = s.Center >= FullDark
			return p, nil
		}
		p.Field = NewField(s, tileSize, tileSize)
	}
	return p, nil
}
