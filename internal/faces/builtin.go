package faces

import (
	"image"
	"image/color"
	"math"

	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

// Solid returns a w x h image filled with c.
func Solid(c color.Color, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = nc.R
		img.Pix[i+1] = nc.G
		img.Pix[i+2] = nc.B
		img.Pix[i+3] = nc.A
	}
	return img
}

// BlendAtlas generates a blend atlas in color c: row 0 holds the sixteen
// border masks, row 1 the sixteen corner masks, each fading from the masked
// edges or corners toward the tile centre.
func BlendAtlas(c color.Color, tileSize int) *image.NRGBA {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	img := image.NewNRGBA(image.Rect(0, 0, smooth.AtlasColumns*tileSize, 2*tileSize))
	half := float64(tileSize) / 2
	last := float64(tileSize - 1)

	fade := func(d float64) float64 {
		if d >= half {
			return 0
		}
		return 1 - d/half
	}

	for mask := 0; mask < smooth.AtlasColumns; mask++ {
		m := uint8(mask)
		for py := 0; py < tileSize; py++ {
			for px := 0; px < tileSize; px++ {
				x, y := float64(px), float64(py)

				var border float64
				if m&smooth.BorderW != 0 {
					border = max(border, fade(x))
				}
				if m&smooth.BorderN != 0 {
					border = max(border, fade(y))
				}
				if m&smooth.BorderE != 0 {
					border = max(border, fade(last-x))
				}
				if m&smooth.BorderS != 0 {
					border = max(border, fade(last-y))
				}

				var corner float64
				if m&smooth.CornerNW != 0 {
					corner = max(corner, fade(math.Hypot(x, y)))
				}
				if m&smooth.CornerNE != 0 {
					corner = max(corner, fade(math.Hypot(last-x, y)))
				}
				if m&smooth.CornerSE != 0 {
					corner = max(corner, fade(math.Hypot(last-x, last-y)))
				}
				if m&smooth.CornerSW != 0 {
					corner = max(corner, fade(math.Hypot(x, last-y)))
				}

				img.SetNRGBA(mask*tileSize+px, py, withAlpha(nc, border))
				img.SetNRGBA(mask*tileSize+px, tileSize+py, withAlpha(nc, corner))
			}
		}
	}
	return img
}

func withAlpha(c color.NRGBA, w float64) color.NRGBA {
	c.A = uint8(float64(c.A) * w)
	return c
}

// builtinTerrain is the palette used when no manifest is configured.
// Terrain faces with an atlas id smooth onto lower neighbours.
var builtinTerrain = []struct {
	id, atlas mapbuf.FaceID
	name      string
	rgb       color.RGBA
	cols      int
	rows      int
}{
	{1, 101, "water", color.RGBA{40, 80, 170, 255}, 1, 1},
	{2, 102, "sand", color.RGBA{210, 190, 120, 255}, 1, 1},
	{3, 103, "grass", color.RGBA{70, 140, 60, 255}, 1, 1},
	{4, 104, "dirt", color.RGBA{120, 85, 50, 255}, 1, 1},
	{5, 105, "stone", color.RGBA{120, 120, 125, 255}, 1, 1},
	{6, 106, "snow", color.RGBA{235, 240, 245, 255}, 1, 1},
	{20, 0, "wall", color.RGBA{90, 70, 60, 255}, 1, 1},
	{21, 0, "tree", color.RGBA{30, 90, 35, 255}, 1, 2},
	{22, 0, "boulder", color.RGBA{100, 100, 100, 255}, 2, 2},
	{23, 0, "lamp", color.RGBA{250, 220, 120, 255}, 1, 1},
}

// Builtin returns a registry holding a generated palette: solid terrain
// faces, their blend atlases, and a few multi-tile objects.
func Builtin(tileSize int) *Registry {
	reg := New(tileSize)
	for _, t := range builtinTerrain {
		_ = reg.Add(t.id, t.name, Solid(t.rgb, t.cols*tileSize, t.rows*tileSize))
		if t.atlas != mapbuf.NoFace {
			_ = reg.Add(t.atlas, t.name+"_blend", BlendAtlas(t.rgb, tileSize))
			_ = reg.SetSmooth(t.id, t.atlas)
		}
	}
	return reg
}
