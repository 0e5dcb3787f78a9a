// Package faces holds the face images the renderers draw and the smoothing
// metadata the engine looks up. A Registry is safe for concurrent use and
// is normally shared by every session.
package faces

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"mapview/internal/mapbuf"
	"mapview/internal/smooth"
)

var (
	// ErrNoFace is returned when adding an image for face 0.
	ErrNoFace = errors.New("face 0 is reserved")
	// ErrNotLoaded is returned for a face id with no image.
	ErrNotLoaded = errors.New("face not loaded")
)

// Face is one registered face. Img is nil until the image is loaded.
type Face struct {
	ID     mapbuf.FaceID
	Name   string
	Smooth mapbuf.FaceID // blend atlas used when this face smooths onto neighbours
	Img    *image.RGBA

	// Cols and Rows are the face size in tiles.
	Cols, Rows int
}

// Registry maps face ids to images and smoothing metadata.
type Registry struct {
	mu       sync.RWMutex
	tileSize int
	faces    map[mapbuf.FaceID]*Face
	byName   map[string]mapbuf.FaceID
}

// New returns an empty registry whose tiles are tileSize pixels square.
func New(tileSize int) *Registry {
	return &Registry{
		tileSize: tileSize,
		faces:    make(map[mapbuf.FaceID]*Face),
		byName:   make(map[string]mapbuf.FaceID),
	}
}

// TileSize returns the pixel edge of one tile.
func (r *Registry) TileSize() int { return r.tileSize }

// Declare registers a face without an image. It resolves by name but is
// not Loaded until Add supplies the image.
func (r *Registry) Declare(id mapbuf.FaceID, name string) error {
	if id == mapbuf.NoFace {
		return ErrNoFace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.face(id).Name = name
	if name != "" {
		r.byName[name] = id
	}
	return nil
}

// Add registers the image for a face. Images whose size is not a whole
// number of tiles are scaled to the nearest tile grid.
func (r *Registry) Add(id mapbuf.FaceID, name string, img image.Image) error {
	if id == mapbuf.NoFace {
		return ErrNoFace
	}
	rgba, cols, rows := r.normalize(img)

	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.face(id)
	f.Img = rgba
	f.Cols, f.Rows = cols, rows
	if name != "" {
		f.Name = name
		r.byName[name] = id
	}
	return nil
}

// face returns the entry for id, creating it. Caller holds the write lock.
func (r *Registry) face(id mapbuf.FaceID) *Face {
	f, ok := r.faces[id]
	if !ok {
		f = &Face{ID: id}
		r.faces[id] = f
	}
	return f
}

func (r *Registry) normalize(img image.Image) (*image.RGBA, int, int) {
	b := img.Bounds()
	ts := r.tileSize
	cols := max(1, (b.Dx()+ts/2)/ts)
	rows := max(1, (b.Dy()+ts/2)/ts)
	dst := image.NewRGBA(image.Rect(0, 0, cols*ts, rows*ts))
	if b.Dx() == cols*ts && b.Dy() == rows*ts {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	return dst, cols, rows
}

// SetSmooth sets the blend atlas used when face smooths onto neighbours.
func (r *Registry) SetSmooth(face, atlas mapbuf.FaceID) error {
	if face == mapbuf.NoFace {
		return ErrNoFace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.face(face).Smooth = atlas
	return nil
}

// SmoothFace implements smooth.FaceLookup.
func (r *Registry) SmoothFace(face mapbuf.FaceID) (mapbuf.FaceID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[face]
	if !ok || f.Smooth == mapbuf.NoFace {
		return mapbuf.NoFace, false
	}
	return f.Smooth, true
}

// Loaded implements smooth.FaceLookup.
func (r *Registry) Loaded(face mapbuf.FaceID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[face]
	return ok && f.Img != nil
}

// Lookup returns the id registered under name.
func (r *Registry) Lookup(name string) (mapbuf.FaceID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Get returns a copy of the face entry.
func (r *Registry) Get(id mapbuf.FaceID) (Face, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[id]
	if !ok {
		return Face{}, false
	}
	return *f, true
}

// Len returns the number of registered faces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.faces)
}

// Image returns the full image of a face.
func (r *Registry) Image(id mapbuf.FaceID) (*image.RGBA, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[id]
	if !ok || f.Img == nil {
		return nil, false
	}
	return f.Img, true
}

// Tile returns the tile of a face shown at the given offset from its
// bottom-right anchor. Single-tile faces ignore the offset.
func (r *Registry) Tile(id mapbuf.FaceID, off mapbuf.Offset) (image.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[id]
	if !ok || f.Img == nil {
		return nil, fmt.Errorf("face %d: %w", id, ErrNotLoaded)
	}
	col := f.Cols - 1 - int(off.X)
	row := f.Rows - 1 - int(off.Y)
	if col < 0 || row < 0 {
		return nil, fmt.Errorf("face %d offset (%d,%d) in %dx%d face: %w",
			id, off.X, off.Y, f.Cols, f.Rows, mapbuf.ErrOutOfBounds)
	}
	return r.sub(f, col, row), nil
}

// AtlasTile returns one cell of a blend atlas face.
func (r *Registry) AtlasTile(id mapbuf.FaceID, t smooth.AtlasTile) (image.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faces[id]
	if !ok || f.Img == nil {
		return nil, fmt.Errorf("atlas %d: %w", id, smooth.ErrUnresolvedFace)
	}
	if t.Col >= f.Cols || t.Row >= f.Rows || t.Col < 0 || t.Row < 0 {
		return nil, fmt.Errorf("atlas %d tile (%d,%d) in %dx%d atlas: %w",
			id, t.Col, t.Row, f.Cols, f.Rows, mapbuf.ErrOutOfBounds)
	}
	return r.sub(f, t.Col, t.Row), nil
}

func (r *Registry) sub(f *Face, col, row int) image.Image {
	ts := r.tileSize
	return f.Img.SubImage(image.Rect(col*ts, row*ts, (col+1)*ts, (row+1)*ts))
}
