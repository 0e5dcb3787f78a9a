package faces

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mapview/internal/logger"
	"mapview/internal/mapbuf"
)

// Manifest lists the faces to load. Each entry has either a PNG file or a
// solid color; entries with Atlas set are generated as blend atlases in
// that color.
type Manifest struct {
	TileSize int     `yaml:"tile_size"`
	Faces    []Entry `yaml:"faces"`
}

type Entry struct {
	ID     uint16 `yaml:"id"`
	Name   string `yaml:"name"`
	File   string `yaml:"file,omitempty"`
	Color  string `yaml:"color,omitempty"` // "#rrggbb"
	Atlas  bool   `yaml:"atlas,omitempty"`
	Size   [2]int `yaml:"size,omitempty"` // tiles, for generated faces
	Smooth uint16 `yaml:"smooth,omitempty"`
}

// LoadManifest reads a YAML manifest and loads every face it names. File
// paths are relative to the manifest. A face whose image cannot be read is
// declared but left unloaded, so smoothing treats it as unresolved.
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.TileSize <= 0 {
		m.TileSize = 32
	}
	reg := New(m.TileSize)
	if err := reg.Apply(m, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return reg, nil
}

// Apply registers the manifest entries; dir resolves relative file paths.
func (r *Registry) Apply(m Manifest, dir string) error {
	for _, e := range m.Faces {
		id := mapbuf.FaceID(e.ID)
		if id == mapbuf.NoFace {
			return fmt.Errorf("face %q: %w", e.Name, ErrNoFace)
		}
		if err := r.Declare(id, e.Name); err != nil {
			return err
		}
		if e.Smooth != 0 {
			if err := r.SetSmooth(id, mapbuf.FaceID(e.Smooth)); err != nil {
				return err
			}
		}

		img, err := r.entryImage(e, dir)
		if err != nil {
			logger.Log.WithField("face", e.Name).WithError(err).Warn("face image not loaded")
			continue
		}
		if err := r.Add(id, e.Name, img); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) entryImage(e Entry, dir string) (image.Image, error) {
	switch {
	case e.File != "":
		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return LoadPNG(path)
	case e.Color != "":
		c, err := ParseHexColor(e.Color)
		if err != nil {
			return nil, err
		}
		if e.Atlas {
			return BlendAtlas(c, r.tileSize), nil
		}
		cols, rows := max(1, e.Size[0]), max(1, e.Size[1])
		return Solid(c, cols*r.tileSize, rows*r.tileSize), nil
	}
	return nil, fmt.Errorf("face %q has neither file nor color", e.Name)
}

// LoadPNG decodes a PNG file. Magenta (#FF00FF) pixels become transparent.
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.R == 0xFF && c.G == 0x00 && c.B == 0xFF {
				c = color.NRGBA{}
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out, nil
}

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}
