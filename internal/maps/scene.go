// Package maps holds static scenes: the world data a feed streams into a
// session's map buffer.
package maps

import (
	"fmt"
	"math"
)

// TerrainDef defines the look and gameplay properties of a terrain type.
type TerrainDef struct {
	Name        string `json:"name"`
	Face        string `json:"face"`
	Layer       int    `json:"layer"`
	SmoothLevel uint8  `json:"smooth_level"`
	Walkable    bool   `json:"walkable"`
}

// Object is a face placed on top of terrain. X, Y is the head tile, the
// bottom-right corner of a multi-tile object.
type Object struct {
	Face   string `json:"face"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w,omitempty"`
	H      int    `json:"h,omitempty"`
	Layer  int    `json:"layer"`
	Blocks bool   `json:"blocks,omitempty"`
}

// Size returns the object size in tiles, at least 1x1.
func (o Object) Size() (int, int) {
	return max(1, o.W), max(1, o.H)
}

// LightSource lowers darkness within Radius tiles of X, Y.
type LightSource struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
}

// Spawn defines the spawn point coordinates.
type Spawn struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Scene is a static world.
type Scene struct {
	Name    string        `json:"name"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Spawn   Spawn         `json:"spawn"`
	Ambient uint8         `json:"ambient"` // darkness away from any light
	Legend  []TerrainDef  `json:"legend"`
	Tiles   [][]int       `json:"tiles"`              // [y][x] legend index
	Dark    [][]uint8     `json:"darkness,omitempty"` // optional explicit darkness
	Objects []Object      `json:"objects,omitempty"`
	Lights  []LightSource `json:"lights,omitempty"`

	darkness []uint8
	parts    map[[2]int][]ObjectPart
}

// ObjectPart is the piece of an object covering one tile.
type ObjectPart struct {
	Object
	OffX, OffY int // tiles left of and above the head
}

var void = TerrainDef{Name: "void"}

// Validate checks dimensions and indices and builds the lookup tables.
// Loaders call it; scenes built in code must call it before use.
func (s *Scene) Validate() error {
	if s.Width < 1 || s.Height < 1 {
		return fmt.Errorf("scene %q: size %dx%d must be positive", s.Name, s.Width, s.Height)
	}
	if len(s.Tiles) != s.Height {
		return fmt.Errorf("scene %q: tile rows %d != declared height %d", s.Name, len(s.Tiles), s.Height)
	}
	for y, row := range s.Tiles {
		if len(row) != s.Width {
			return fmt.Errorf("scene %q: row %d has %d tiles, expected %d", s.Name, y, len(row), s.Width)
		}
		for x, idx := range row {
			if idx < 0 || idx >= len(s.Legend) {
				return fmt.Errorf("scene %q: tile (%d,%d) index %d outside legend", s.Name, x, y, idx)
			}
		}
	}
	if s.Dark != nil && len(s.Dark) != s.Height {
		return fmt.Errorf("scene %q: darkness rows %d != height %d", s.Name, len(s.Dark), s.Height)
	}
	for _, t := range s.Legend {
		if t.Layer < 0 {
			return fmt.Errorf("scene %q: terrain %q has negative layer", s.Name, t.Name)
		}
	}
	if !s.InBounds(s.Spawn.X, s.Spawn.Y) {
		return fmt.Errorf("scene %q: spawn (%d,%d) outside map", s.Name, s.Spawn.X, s.Spawn.Y)
	}
	s.index()
	return nil
}

func (s *Scene) index() {
	s.parts = make(map[[2]int][]ObjectPart)
	for _, o := range s.Objects {
		w, h := o.Size()
		for dy := 0; dy < h; dy++ {
			for dx := 0; dx < w; dx++ {
				x, y := o.X-dx, o.Y-dy
				if !s.InBounds(x, y) {
					continue
				}
				k := [2]int{x, y}
				s.parts[k] = append(s.parts[k], ObjectPart{Object: o, OffX: dx, OffY: dy})
			}
		}
	}

	s.darkness = make([]uint8, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if s.Dark != nil && x < len(s.Dark[y]) {
				s.darkness[y*s.Width+x] = s.Dark[y][x]
				continue
			}
			s.darkness[y*s.Width+x] = s.litDarkness(x, y)
		}
	}
}

// litDarkness is the ambient darkness reduced by the nearest light.
func (s *Scene) litDarkness(x, y int) uint8 {
	d := float64(s.Ambient)
	for _, l := range s.Lights {
		if l.Radius <= 0 {
			continue
		}
		dist := math.Hypot(float64(x-l.X), float64(y-l.Y))
		f := min(1, dist/float64(l.Radius))
		d = min(d, float64(s.Ambient)*f)
	}
	return uint8(d)
}

// InBounds reports whether (x, y) is on the map.
func (s *Scene) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

// TerrainAt returns the terrain at the given coordinates, or a void
// terrain for out-of-bounds coordinates.
func (s *Scene) TerrainAt(x, y int) TerrainDef {
	if !s.InBounds(x, y) {
		return void
	}
	return s.Legend[s.Tiles[y][x]]
}

// DarknessAt returns the darkness of a tile; off-map tiles are fully dark.
func (s *Scene) DarknessAt(x, y int) uint8 {
	if !s.InBounds(x, y) || s.darkness == nil {
		return 255
	}
	return s.darkness[y*s.Width+x]
}

// ObjectsAt returns the object pieces covering (x, y).
func (s *Scene) ObjectsAt(x, y int) []ObjectPart {
	return s.parts[[2]int{x, y}]
}

// IsWalkable checks terrain and blocking objects at x,y.
func (s *Scene) IsWalkable(x, y int) bool {
	if !s.TerrainAt(x, y).Walkable {
		return false
	}
	for _, p := range s.ObjectsAt(x, y) {
		if p.Blocks {
			return false
		}
	}
	return true
}

// StandardLegend is the terrain set used by generated and default scenes.
// Higher smooth levels blend over lower ones.
func StandardLegend() []TerrainDef {
	return []TerrainDef{
		{Name: "water", Face: "water", SmoothLevel: 1},
		{Name: "sand", Face: "sand", SmoothLevel: 2, Walkable: true},
		{Name: "grass", Face: "grass", SmoothLevel: 3, Walkable: true},
		{Name: "dirt", Face: "dirt", SmoothLevel: 4, Walkable: true},
		{Name: "stone", Face: "stone", SmoothLevel: 5, Walkable: true},
		{Name: "snow", Face: "snow", SmoothLevel: 6, Walkable: true},
		{Name: "wall", Face: "wall"},
	}
}

// Legend indices of StandardLegend.
const (
	Water = iota
	Sand
	Grass
	Dirt
	Stone
	Snow
	Wall
)

// DefaultScene returns a small walled meadow with a pond, used when no
// scene file is available.
func DefaultScene() *Scene {
	w, h := 48, 32
	tiles := make([][]int, h)
	for y := 0; y < h; y++ {
		tiles[y] = make([]int, w)
		for x := 0; x < w; x++ {
			pond := math.Hypot(float64(x-14), float64(y-12))
			switch {
			case x == 0 || x == w-1 || y == 0 || y == h-1:
				tiles[y][x] = Wall
			case pond < 4:
				tiles[y][x] = Water
			case pond < 6:
				tiles[y][x] = Sand
			case x > 32 && y > 20:
				tiles[y][x] = Stone
			default:
				tiles[y][x] = Grass
			}
		}
	}

	s := &Scene{
		Name:    "default",
		Width:   w,
		Height:  h,
		Spawn:   Spawn{X: w / 2, Y: h / 2},
		Ambient: 200,
		Legend:  StandardLegend(),
		Tiles:   tiles,
		Objects: []Object{
			{Face: "tree", X: 30, Y: 8, W: 1, H: 2, Layer: 2, Blocks: true},
			{Face: "tree", X: 6, Y: 24, W: 1, H: 2, Layer: 2, Blocks: true},
			{Face: "boulder", X: 38, Y: 25, W: 2, H: 2, Layer: 2, Blocks: true},
			{Face: "lamp", X: 24, Y: 14, Layer: 3},
		},
		Lights: []LightSource{
			{X: 24, Y: 14, Radius: 9},
			{X: 14, Y: 12, Radius: 5},
		},
	}
	if err := s.Validate(); err != nil {
		panic(err)
	}
	return s
}
