package smooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapview/internal/mapbuf"
)

// fakeFaces maps terrain faces to blend faces; only faces in loaded have images.
type fakeFaces struct {
	smooth map[mapbuf.FaceID]mapbuf.FaceID
	loaded map[mapbuf.FaceID]bool
}

func (f fakeFaces) SmoothFace(face mapbuf.FaceID) (mapbuf.FaceID, bool) {
	s, ok := f.smooth[face]
	return s, ok
}

func (f fakeFaces) Loaded(face mapbuf.FaceID) bool { return f.loaded[face] }

const (
	faceGrass mapbuf.FaceID = 10
	faceSand  mapbuf.FaceID = 11
	faceWater mapbuf.FaceID = 12
	faceLava  mapbuf.FaceID = 13

	blendGrass mapbuf.FaceID = 110
	blendSand  mapbuf.FaceID = 111
	blendWater mapbuf.FaceID = 112
	blendLava  mapbuf.FaceID = 113
)

func testFaces() fakeFaces {
	return fakeFaces{
		smooth: map[mapbuf.FaceID]mapbuf.FaceID{
			faceGrass: blendGrass,
			faceSand:  blendSand,
			faceWater: blendWater,
			faceLava:  blendLava,
		},
		loaded: map[mapbuf.FaceID]bool{
			blendGrass: true,
			blendSand:  true,
			blendWater: true,
			// blendLava is still loading
		},
	}
}

// grid builds a 3x3 buffer whose center is (1,1). levels and faces are
// given in row-major order.
func grid(t *testing.T, faces [9]mapbuf.FaceID, levels [9]uint8) *mapbuf.Buffer {
	t.Helper()
	b, err := mapbuf.New(3, 3)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		c, err := b.Cell(i%3, i/3)
		require.NoError(t, err)
		c.Layers[0] = mapbuf.LayerSlot{Head: faces[i], SmoothLevel: levels[i]}
	}
	return b
}

func TestWeights(t *testing.T) {
	bit := func(ds ...mapbuf.Direction) uint8 {
		var m uint8
		for _, d := range ds {
			m |= 1 << d
		}
		return m
	}

	tests := []struct {
		name          string
		members       uint8
		border, corner uint8
	}{
		{"empty", 0, 0, 15},
		{"north only", bit(mapbuf.North), BorderN, 15},
		{"north and east", bit(mapbuf.North, mapbuf.East), 6, 13},
		{"north, east and northeast", bit(mapbuf.North, mapbuf.NorthEast, mapbuf.East), 6, 15},
		{"all orthogonal", bit(mapbuf.Orthogonal[:]...), 15, 0},
		{"everything", 0xFF, 15, 15},
		{"south and west", bit(mapbuf.South, mapbuf.West), BorderS | BorderW, 15 &^ CornerSW},
		{"diagonal only", bit(mapbuf.SouthEast), 0, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			border, corner := Weights(tt.members)
			assert.Equal(t, tt.border, border)
			assert.Equal(t, tt.corner, corner)
		})
	}
}

func TestWeights_Ranges(t *testing.T) {
	for m := 0; m < 256; m++ {
		border, corner := Weights(uint8(m))
		assert.LessOrEqual(t, border, uint8(15))
		assert.LessOrEqual(t, corner, uint8(15))
	}
}

func TestCompute_NorthAndEastScenario(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{faceSand, faceGrass, faceSand, faceSand, faceSand, faceGrass, faceSand, faceSand, faceSand},
		[9]uint8{0, 2, 0, 0, 1, 2, 0, 0, 0},
	)

	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	require.Len(t, res.Blends, 1)

	bl := res.Blends[0]
	assert.Equal(t, uint8(2), bl.Level)
	assert.Equal(t, blendGrass, bl.Face)
	assert.Equal(t, uint8(6), bl.Border)
	assert.Equal(t, uint8(13), bl.Corner)
	assert.Equal(t, []AtlasTile{{Col: 6, Row: 0}, {Col: 13, Row: 1}}, bl.Tiles())
}

func TestCompute_GroupsOrderedByLevel(t *testing.T) {
	// Water (level 5) to the west, grass (level 2) to the north and south.
	b := grid(t,
		[9]mapbuf.FaceID{faceSand, faceGrass, faceSand, faceWater, faceSand, faceSand, faceSand, faceGrass, faceSand},
		[9]uint8{0, 2, 0, 5, 1, 0, 0, 2, 0},
	)

	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	require.Len(t, res.Blends, 2)
	assert.Equal(t, blendGrass, res.Blends[0].Face)
	assert.Equal(t, BorderN|BorderS, res.Blends[0].Border)
	assert.Equal(t, blendWater, res.Blends[1].Face)
	assert.Equal(t, BorderW, res.Blends[1].Border)
}

func TestCompute_SameLevelDifferentFaces(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{0, faceGrass, 0, faceWater, faceSand, 0, 0, 0, 0},
		[9]uint8{0, 3, 0, 3, 1, 0, 0, 0, 0},
	)

	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	require.Len(t, res.Blends, 2)
	// Ties keep first-seen direction order: N before W.
	assert.Equal(t, blendGrass, res.Blends[0].Face)
	assert.Equal(t, blendWater, res.Blends[1].Face)
}

func TestCompute_OnlyStrictlyHigherLevels(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{faceGrass, faceGrass, faceGrass, faceGrass, faceGrass, faceGrass, faceGrass, faceGrass, faceGrass},
		[9]uint8{2, 2, 2, 2, 2, 1, 1, 1, 1},
	)
	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	assert.Empty(t, res.Blends)
}

func TestCompute_NoHeadNeverSmoothed(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{0, faceGrass, 0, 0, 0, 0, 0, 0, 0},
		[9]uint8{0, 5, 0, 0, 0, 0, 0, 0, 0},
	)
	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	assert.Empty(t, res.Blends)
}

func TestCompute_UnresolvedFaceContributesNothing(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{0, faceLava, 0, 0, faceSand, faceGrass, 0, 0, 0},
		[9]uint8{0, 4, 0, 0, 1, 2, 0, 0, 0},
	)
	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unresolved)
	require.Len(t, res.Blends, 1)
	assert.Equal(t, BorderE, res.Blends[0].Border)
}

func TestCompute_BlackFaceNeverContributes(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{0, 0, 0, 0, faceSand, 0, 0, 0, 0},
		[9]uint8{0, 9, 0, 0, 1, 0, 0, 0, 0},
	)
	res, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	assert.Empty(t, res.Blends)
	assert.Zero(t, res.Unresolved)
}

func TestCompute_EdgeNeighboursCountAsZero(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{faceSand, faceGrass, 0, faceGrass, 0, 0, 0, 0, 0},
		[9]uint8{0, 3, 0, 3, 0, 0, 0, 0, 0},
	)
	// (0,0) sits in the corner: N, NE, NW, W, SW are off-buffer.
	res, err := Compute(b, 0, 0, 0, testFaces())
	require.NoError(t, err)
	require.Len(t, res.Blends, 1)
	assert.Equal(t, BorderE|BorderS, res.Blends[0].Border)
}

func TestCompute_Deterministic(t *testing.T) {
	b := grid(t,
		[9]mapbuf.FaceID{faceGrass, faceWater, faceGrass, faceSand, faceSand, faceWater, faceGrass, faceGrass, faceWater},
		[9]uint8{2, 5, 2, 3, 1, 5, 2, 2, 5},
	)
	first, err := Compute(b, 1, 1, 0, testFaces())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compute(b, 1, 1, 0, testFaces())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompute_Errors(t *testing.T) {
	b := grid(t, [9]mapbuf.FaceID{}, [9]uint8{})
	_, err := Compute(b, 5, 1, 0, testFaces())
	assert.ErrorIs(t, err, mapbuf.ErrOutOfBounds)
	_, err = Compute(b, 1, 1, mapbuf.NumLayers, testFaces())
	assert.ErrorIs(t, err, mapbuf.ErrOutOfBounds)
}

func TestResolveFace(t *testing.T) {
	f := testFaces()
	got, err := ResolveFace(f, faceGrass)
	require.NoError(t, err)
	assert.Equal(t, blendGrass, got)

	_, err = ResolveFace(f, faceLava)
	assert.ErrorIs(t, err, ErrUnresolvedFace)
	_, err = ResolveFace(f, 999)
	assert.ErrorIs(t, err, ErrUnresolvedFace)
}
