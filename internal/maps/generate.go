package maps

import (
	"fmt"
	"math/rand"

	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = 3
	noiseScale   = 0.06
)

// noiseField samples perlin noise mapped to [0, 1].
type noiseField struct {
	p *perlin.Perlin
}

func newNoiseField(seed int64) noiseField {
	return noiseField{p: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)}
}

func (n noiseField) at(x, y int) float64 {
	v := (n.p.Noise2D(float64(x)*noiseScale, float64(y)*noiseScale) + 1) / 2
	return min(1, max(0, v))
}

// Generate builds a w x h scene from seed: elevation bands of terrain,
// trees and boulders scattered by a second noise field, and a handful of
// lamps. The same seed always yields the same scene.
func Generate(seed int64, w, h int) (*Scene, error) {
	if w < 10 || h < 10 {
		return nil, fmt.Errorf("generate: size %dx%d below 10x10", w, h)
	}
	elevation := newNoiseField(seed)
	detail := newNoiseField(seed + 1)
	rng := rand.New(rand.NewSource(seed + 100))

	tiles := make([][]int, h)
	for y := 0; y < h; y++ {
		tiles[y] = make([]int, w)
		for x := 0; x < w; x++ {
			if x == 0 || x == w-1 || y == 0 || y == h-1 {
				tiles[y][x] = Wall
				continue
			}
			tiles[y][x] = classifyTile(elevation.at(x, y))
		}
	}

	s := &Scene{
		Name:    fmt.Sprintf("generated-%d", seed),
		Width:   w,
		Height:  h,
		Ambient: 190,
		Legend:  StandardLegend(),
		Tiles:   tiles,
	}

	for y := 2; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			d := detail.at(x, y)
			switch tiles[y][x] {
			case Grass:
				if d > 0.72 && tiles[y-1][x] == Grass && rng.Intn(3) == 0 {
					s.Objects = append(s.Objects, Object{Face: "tree", X: x, Y: y, W: 1, H: 2, Layer: 2, Blocks: true})
				}
			case Stone:
				if d > 0.8 && x > 1 && tiles[y-1][x-1] == Stone && rng.Intn(4) == 0 {
					s.Objects = append(s.Objects, Object{Face: "boulder", X: x, Y: y, W: 2, H: 2, Layer: 2, Blocks: true})
				}
			}
		}
	}

	lamps := max(1, w*h/400)
	for tries := 0; len(s.Lights) < lamps && tries < lamps*20; tries++ {
		x, y := 1+rng.Intn(w-2), 1+rng.Intn(h-2)
		if tiles[y][x] == Water || tiles[y][x] == Wall {
			continue
		}
		s.Objects = append(s.Objects, Object{Face: "lamp", X: x, Y: y, Layer: 3})
		s.Lights = append(s.Lights, LightSource{X: x, Y: y, Radius: 5 + rng.Intn(5)})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Spawn.X, s.Spawn.Y = findSpawn(s)
	return s, nil
}

func classifyTile(elev float64) int {
	switch {
	case elev < 0.32:
		return Water
	case elev < 0.38:
		return Sand
	case elev < 0.58:
		return Grass
	case elev < 0.66:
		return Dirt
	case elev < 0.76:
		return Stone
	default:
		return Snow
	}
}

// findSpawn searches outward from the center for a walkable tile with a
// mostly walkable 3x3 neighbourhood.
func findSpawn(s *Scene) (int, int) {
	cx, cy := s.Width/2, s.Height/2
	maxR := max(s.Width, s.Height) / 2
	for r := 0; r <= maxR; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue // only check the ring perimeter
				}
				x, y := cx+dx, cy+dy
				if !s.IsWalkable(x, y) {
					continue
				}
				walkCount := 0
				for ny := y - 1; ny <= y+1; ny++ {
					for nx := x - 1; nx <= x+1; nx++ {
						if s.IsWalkable(nx, ny) {
							walkCount++
						}
					}
				}
				if walkCount >= 7 {
					return x, y
				}
			}
		}
	}
	return cx, cy
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
