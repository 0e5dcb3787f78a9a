// Package smooth derives the edge-blend overlays that soften the boundary
// between adjacent terrain tiles.
//
// For a cell, every neighbour with a strictly higher smooth level on the same
// layer is a candidate. Candidates are grouped by (level, blend face); each
// group selects one border sub-tile and one corner sub-tile from the blend
// face's atlas. The atlas is 16 tiles wide: row 0 holds border masks,
// row 1 holds corner masks, and the column is the mask value.
package smooth

import (
	"errors"
	"fmt"
	"slices"

	"mapview/internal/mapbuf"
)

// ErrUnresolvedFace marks a blend face with no loaded image. It is always
// recovered by skipping the contribution.
var ErrUnresolvedFace = errors.New("unresolved face")

// Border weight bits, one per orthogonal direction.
const (
	BorderW uint8 = 1
	BorderN uint8 = 2
	BorderE uint8 = 4
	BorderS uint8 = 8
)

// Corner weight bits, one per diagonal direction.
const (
	CornerNW uint8 = 1
	CornerNE uint8 = 2
	CornerSE uint8 = 4
	CornerSW uint8 = 8
)

// AtlasColumns is the width of a blend atlas in tiles.
const AtlasColumns = 16

// FaceLookup resolves face metadata owned by the face registry.
type FaceLookup interface {
	// SmoothFace returns the blend atlas face used when face smooths onto
	// its neighbours.
	SmoothFace(face mapbuf.FaceID) (mapbuf.FaceID, bool)
	// Loaded reports whether the face has image data.
	Loaded(face mapbuf.FaceID) bool
}

// AtlasTile addresses one tile-sized cell of a blend atlas.
type AtlasTile struct {
	Col, Row int
}

// Blend is one group of neighbours sharing a smooth level and blend face.
type Blend struct {
	Level   uint8
	Face    mapbuf.FaceID // blend atlas face
	Members uint8         // bit i set when Directions[i] is in the group
	Border  uint8
	Corner  uint8
}

// Tiles returns the atlas tiles to composite for this group, border first.
func (b Blend) Tiles() []AtlasTile {
	var tiles []AtlasTile
	if b.Border > 0 {
		tiles = append(tiles, AtlasTile{Col: int(b.Border), Row: 0})
	}
	if b.Corner > 0 {
		tiles = append(tiles, AtlasTile{Col: int(b.Corner), Row: 1})
	}
	return tiles
}

// Result is the outcome of smoothing one (cell, layer).
type Result struct {
	Blends     []Blend // lowest level first
	Unresolved int     // candidates skipped because their blend face is not loaded
}

// ResolveFace returns the blend face for face, or ErrUnresolvedFace when
// there is none or it has no image yet.
func ResolveFace(faces FaceLookup, face mapbuf.FaceID) (mapbuf.FaceID, error) {
	blend, ok := faces.SmoothFace(face)
	if !ok || blend == mapbuf.NoFace || !faces.Loaded(blend) {
		return mapbuf.NoFace, fmt.Errorf("smooth face for %d: %w", face, ErrUnresolvedFace)
	}
	return blend, nil
}

// Compute returns the blend groups for the given buffer cell and layer.
// Cells without a head face are never smoothed. Neighbours outside the
// buffer count as level 0.
func Compute(buf *mapbuf.Buffer, x, y, layer int, faces FaceLookup) (Result, error) {
	var res Result
	if layer < 0 || layer >= mapbuf.NumLayers {
		return res, fmt.Errorf("layer %d: %w", layer, mapbuf.ErrOutOfBounds)
	}
	cell, err := buf.Cell(x, y)
	if err != nil {
		return res, err
	}
	slot := cell.Layers[layer]
	if !slot.HasHead() {
		return res, nil
	}

	for i, d := range mapbuf.Directions {
		n, ok := buf.Neighbor(x, y, d)
		if !ok {
			continue
		}
		ns := n.Layers[layer]
		if ns.SmoothLevel <= slot.SmoothLevel || ns.Head == mapbuf.NoFace {
			continue
		}
		blend, err := ResolveFace(faces, ns.Head)
		if err != nil {
			res.Unresolved++
			continue
		}
		idx := slices.IndexFunc(res.Blends, func(b Blend) bool {
			return b.Level == ns.SmoothLevel && b.Face == blend
		})
		if idx < 0 {
			res.Blends = append(res.Blends, Blend{Level: ns.SmoothLevel, Face: blend})
			idx = len(res.Blends) - 1
		}
		res.Blends[idx].Members |= 1 << i
	}

	slices.SortStableFunc(res.Blends, func(a, b Blend) int {
		return int(a.Level) - int(b.Level)
	})
	for i := range res.Blends {
		res.Blends[i].Border, res.Blends[i].Corner = Weights(res.Blends[i].Members)
	}
	return res, nil
}

// corner describes one diagonal and the two orthogonals beside it.
type cornerDef struct {
	dir  mapbuf.Direction
	adjA mapbuf.Direction
	adjB mapbuf.Direction
	bit  uint8
}

var corners = [4]cornerDef{
	{mapbuf.NorthEast, mapbuf.North, mapbuf.East, CornerNE},
	{mapbuf.SouthEast, mapbuf.East, mapbuf.South, CornerSE},
	{mapbuf.SouthWest, mapbuf.South, mapbuf.West, CornerSW},
	{mapbuf.NorthWest, mapbuf.West, mapbuf.North, CornerNW},
}

var borderBits = map[mapbuf.Direction]uint8{
	mapbuf.North: BorderN,
	mapbuf.East:  BorderE,
	mapbuf.South: BorderS,
	mapbuf.West:  BorderW,
}

// Weights computes the border and corner masks for a group whose member
// directions are given as a bit set indexed by mapbuf.Direction.
//
// Corner bits start set; a corner is cleared when both orthogonals beside
// it are in the group and the corner itself is not. Clearing on either
// orthogonal alone would leave an N+E group with corner 8 (SW only); the
// expected weight for that group is 13 (all but NE), so both are required.
func Weights(members uint8) (border, corner uint8) {
	has := func(d mapbuf.Direction) bool { return members&(1<<d) != 0 }

	for _, d := range mapbuf.Orthogonal {
		if has(d) {
			border |= borderBits[d]
		}
	}

	corner = 0x0F
	for _, c := range corners {
		if has(c.adjA) && has(c.adjB) && !has(c.dir) {
			corner &^= c.bit
		}
	}
	return border, corner
}
