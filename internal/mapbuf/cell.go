package mapbuf

// NumLayers is the number of visual layers stacked on every map cell,
// ordered back to front.
const NumLayers = 10

// FaceID identifies a face (image) known to the face registry.
// Face 0 is the black/empty sentinel and means "no face".
type FaceID uint16

// NoFace is the empty face.
const NoFace FaceID = 0

// Offset locates a tile inside a multi-tile face, counted in tiles left (X)
// and up (Y) from the face's bottom-right anchor tile.
type Offset struct {
	X, Y uint8
}

// LayerSlot is one visual layer of a cell.
type LayerSlot struct {
	Head       FaceID
	HeadOffset Offset
	Tail       FaceID
	TailOffset Offset

	// SmoothLevel is the terrain priority used for edge blending.
	// 0 = not smoothable.
	SmoothLevel uint8
}

// HasHead reports whether the layer has an anchor face.
func (l LayerSlot) HasHead() bool { return l.Head != NoFace }

// Cell is the per-tile rendering state held by the virtual map buffer.
type Cell struct {
	Layers [NumLayers]LayerSlot

	Darkness    uint8 // 0 = fully lit, 255 = fully dark
	HasDarkness bool  // false until a darkness update arrives

	Dirty         bool // needs redraw
	NeedsResmooth bool // blend parameters must be recomputed
	FogCleared    bool // remembered, not currently visible
}

// Visibility is the resolved visual state of a cell: either fogged
// (fog-of-war memory) or lit with a darkness value.
type Visibility struct {
	Fogged   bool
	Darkness uint8
}

// Fogged returns the fog-of-war visibility.
func Fogged() Visibility { return Visibility{Fogged: true} }

// Lit returns a visible state with the given darkness.
func Lit(darkness uint8) Visibility { return Visibility{Darkness: darkness} }

// Visibility resolves the cell's fog and darkness flags. Fog always takes
// precedence over darkness. A cell that never received darkness reports
// ok=false so the caller can fall back to its neighbours.
func (c *Cell) Visibility() (v Visibility, ok bool) {
	if c.FogCleared {
		return Fogged(), true
	}
	if !c.HasDarkness {
		return Lit(0), false
	}
	return Lit(c.Darkness), true
}

// Reset zeroes the cell.
func (c *Cell) Reset() {
	*c = Cell{}
}

// ClearLayer removes all faces from a layer but keeps its smooth level.
func (c *Cell) ClearLayer(layer int) {
	level := c.Layers[layer].SmoothLevel
	c.Layers[layer] = LayerSlot{SmoothLevel: level}
}

// Empty reports whether the cell holds no faces on any layer.
func (c *Cell) Empty() bool {
	for i := range c.Layers {
		if c.Layers[i].Head != NoFace || c.Layers[i].Tail != NoFace {
			return false
		}
	}
	return true
}
