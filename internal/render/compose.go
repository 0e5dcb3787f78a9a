package render

import (
	"image"
	"image/color"
	"image/draw"

	"mapview/internal/engine"
	"mapview/internal/light"
	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

// FaceSource supplies the tile images a Composer draws.
type FaceSource interface {
	TileSize() int
	Tile(id mapbuf.FaceID, off mapbuf.Offset) (image.Image, error)
	AtlasTile(id mapbuf.FaceID, t smooth.AtlasTile) (image.Image, error)
}

// Composer rasterizes engine draw cells into tile-sized RGBA images.
type Composer struct {
	faces    FaceSource
	tileSize int
	Missing  int // face lookups that failed since the last reset
}

func NewComposer(faces FaceSource) *Composer {
	return &Composer{faces: faces, tileSize: faces.TileSize()}
}

// TileSize returns the pixel edge of a composed tile.
func (c *Composer) TileSize() int { return c.tileSize }

// Compose draws one cell into dst, which must be tileSize square. Layers go
// back to front; each layer's blend overlays follow its own faces. Lighting
// or fog is applied last.
func (c *Composer) Compose(dst *image.RGBA, dc engine.DrawCell) {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	if dc.Light.Opaque && !dc.Light.Fogged {
		return
	}

	for layer, slot := range dc.Layers {
		if slot.Head != mapbuf.NoFace {
			c.drawFace(dst, slot.Head, slot.HeadOffset)
		}
		if slot.Tail != mapbuf.NoFace {
			c.drawFace(dst, slot.Tail, slot.TailOffset)
		}
		for _, b := range dc.Blends[layer] {
			for _, t := range b.Tiles() {
				img, err := c.faces.AtlasTile(b.Face, t)
				if err != nil {
					c.Missing++
					continue
				}
				draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
			}
		}
	}

	c.shade(dst, dc.Light)
}

func (c *Composer) drawFace(dst *image.RGBA, id mapbuf.FaceID, off mapbuf.Offset) {
	img, err := c.faces.Tile(id, off)
	if err != nil {
		c.Missing++
		return
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
}

// shade darkens dst in place.
func (c *Composer) shade(dst *image.RGBA, p light.Params) {
	switch {
	case p.Fogged:
		fog(dst)
	case p.Mode == light.Off:
	case p.Field != nil:
		b := dst.Bounds()
		for y := 0; y < b.Dy(); y++ {
			fy := y * p.Field.H / b.Dy()
			for x := 0; x < b.Dx(); x++ {
				fx := x * p.Field.W / b.Dx()
				darken(dst, b.Min.X+x, b.Min.Y+y, p.Field.At(fx, fy))
			}
		}
	case p.Opacity > 0:
		b := dst.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				darken(dst, x, y, p.Opacity)
			}
		}
	}
}

// darken blends black over the pixel with the given opacity.
func darken(img *image.RGBA, x, y int, opacity uint8) {
	i := img.PixOffset(x, y)
	keep := 255 - uint32(opacity)
	for k := 0; k < 3; k++ {
		img.Pix[i+k] = uint8(uint32(img.Pix[i+k]) * keep / 255)
	}
}

// fog renders remembered cells as dim greyscale.
func fog(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			g := color.GrayModel.Convert(color.RGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], 255}).(color.Gray).Y
			g /= 2
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = g, g, g
		}
	}
}
