package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/light"
	"mapview/internal/mapbuf"
	"mapview/internal/maps"
	"mapview/internal/render"
	"mapview/internal/world"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "validate":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools validate <scenes-dir>")
			os.Exit(1)
		}
		os.Exit(runValidate(args[0]))
	case "viz":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools viz <scene-file>")
			os.Exit(1)
		}
		os.Exit(runViz(args[0]))
	case "stats":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools stats <scene-file>")
			os.Exit(1)
		}
		os.Exit(runStats(args[0]))
	case "blend":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "Usage: maptools blend <scene-file> <x> <y>")
			os.Exit(1)
		}
		os.Exit(runBlend(args[0], args[1], args[2]))
	case "all":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: maptools all <scenes-dir>")
			os.Exit(1)
		}
		os.Exit(runAll(args[0]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: maptools <command> <path>

Commands:
  validate <scenes-dir>          Validate all scenes in directory
  viz      <scene-file>          Render the whole scene with the terminal renderer
  stats    <scene-file>          Show terrain distribution, objects and lighting
  blend    <scene-file> <x> <y>  Show layers, edge blends and light of one tile
  all      <scenes-dir>          Run validate + stats for all scenes`)
}

// newPipeline builds an engine fed with a viewW x viewH window
// centered on (cx, cy).
func newPipeline(s *maps.Scene, reg *faces.Registry, viewW, viewH, cx, cy int, mode light.Mode, r engine.Renderer) (*engine.Engine, error) {
	bufW, bufH := config.MapConfig{ViewWidth: viewW, ViewHeight: viewH}.BufferSize()
	eng, err := engine.New(engine.Options{
		Width:      bufW,
		Height:     bufH,
		ViewWidth:  viewW,
		ViewHeight: viewH,
		Faces:      reg,
		Lighting:   mode,
		Smoothing:  true,
		TileSize:   reg.TileSize(),
		QueueSize:  1,
	}, r)
	if err != nil {
		return nil, err
	}
	feed := world.NewFeed(s, reg, world.Options{ViewWidth: viewW, ViewHeight: viewH})
	feed.X, feed.Y = cx, cy
	if !eng.EnqueueAll(feed.Join()) {
		return nil, fmt.Errorf("join batch dropped")
	}
	return eng, nil
}

// --- validate ---

func runValidate(dir string) int {
	all, err := maps.LoadScenes(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	reg := faces.Builtin(engine.DefaultTileSize)

	errors := 0
	for name, s := range all {
		fmt.Printf("Validating %q...\n", name)
		before := errors

		if !s.IsWalkable(s.Spawn.X, s.Spawn.Y) {
			fmt.Printf("  ERROR: spawn (%d,%d) is not walkable\n", s.Spawn.X, s.Spawn.Y)
			errors++
		}
		for _, o := range s.Objects {
			if !s.InBounds(o.X, o.Y) {
				fmt.Printf("  ERROR: object %q at (%d,%d) is out of bounds\n", o.Face, o.X, o.Y)
				errors++
			}
			if _, ok := reg.Lookup(o.Face); !ok {
				fmt.Printf("  WARN: object face %q is not a built-in face\n", o.Face)
			}
		}
		for _, t := range s.Legend {
			if _, ok := reg.Lookup(t.Face); !ok {
				fmt.Printf("  WARN: terrain face %q is not a built-in face\n", t.Face)
			}
		}
		for _, l := range s.Lights {
			if !s.InBounds(l.X, l.Y) || l.Radius <= 0 {
				fmt.Printf("  ERROR: light at (%d,%d) radius %d is invalid\n", l.X, l.Y, l.Radius)
				errors++
			}
		}

		if errors == before {
			fmt.Printf("  OK (%dx%d, %d objects, %d lights)\n", s.Width, s.Height, len(s.Objects), len(s.Lights))
		}
	}

	if errors > 0 {
		fmt.Printf("\n%d error(s) found\n", errors)
		return 1
	}
	fmt.Printf("\nAll %d scenes valid\n", len(all))
	return 0
}

// --- viz ---

func runViz(path string) int {
	s, err := maps.LoadScene(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	reg := faces.Builtin(8)

	// two columns and one row per tile
	term := render.NewTerminal(os.Stdout, render.NewComposer(reg), s.Width*2, s.Height+render.HUDRows, 2)
	term.SetStatus(fmt.Sprintf("%s (%dx%d)", s.Name, s.Width, s.Height))
	eng, err := newPipeline(s, reg, s.Width, s.Height, s.Width/2, s.Height/2, light.PerTile, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Print(render.ClearScreen())
	if err := eng.Tick(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Print(render.MoveTo(s.Height+render.HUDRows+1, 1))
	return 0
}

// --- stats ---

func runStats(path string) int {
	s, err := maps.LoadScene(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("%s (%dx%d = %d tiles)\n\n", s.Name, s.Width, s.Height, s.Width*s.Height)

	counts := make(map[string]int)
	walkable := 0
	darkSum := 0
	total := s.Width * s.Height

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			counts[s.TerrainAt(x, y).Name]++
			if s.IsWalkable(x, y) {
				walkable++
			}
			darkSum += int(s.DarknessAt(x, y))
		}
	}

	type entry struct {
		name  string
		count int
	}
	var sorted []entry
	for name, count := range counts {
		sorted = append(sorted, entry{name, count})
	}
	slices.SortFunc(sorted, func(a, b entry) int { return b.count - a.count })

	for _, e := range sorted {
		pct := float64(e.count) / float64(total) * 100
		bar := strings.Repeat("█", int(pct/2))
		fmt.Printf("  %-10s %4d (%5.1f%%) %s\n", e.name, e.count, pct, bar)
	}

	fmt.Printf("\nWalkable: %d/%d (%.1f%%)\n", walkable, total, float64(walkable)/float64(total)*100)
	fmt.Printf("Objects:  %d\n", len(s.Objects))
	fmt.Printf("Lights:   %d (mean darkness %d, ambient %d)\n", len(s.Lights), darkSum/total, s.Ambient)
	return 0
}

// --- blend ---

func runBlend(path, xs, ys string) int {
	s, err := maps.LoadScene(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil || !s.InBounds(x, y) {
		fmt.Fprintf(os.Stderr, "Error: invalid tile %s,%s\n", xs, ys)
		return 1
	}
	reg := faces.Builtin(8)

	var center *engine.DrawCell
	capture := engine.RendererFunc(func(f engine.Frame) error {
		for dc := range f.Cells {
			if dc.ScreenX == 1 && dc.ScreenY == 1 {
				center = &dc
			}
		}
		return nil
	})
	eng, err := newPipeline(s, reg, 3, 3, x, y, light.PerPixel, capture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := eng.Tick(); err != nil || center == nil {
		fmt.Fprintf(os.Stderr, "Error: tile not drawn: %v\n", err)
		return 1
	}

	name := func(id mapbuf.FaceID) string {
		if id == mapbuf.NoFace {
			return "-"
		}
		if f, ok := reg.Get(id); ok {
			return f.Name
		}
		return strconv.Itoa(int(id))
	}

	fmt.Printf("%s (%d,%d): %s, darkness %d\n", s.Name, x, y, s.TerrainAt(x, y).Name, s.DarknessAt(x, y))
	for l, slot := range center.Layers {
		if !slot.HasHead() && slot.Tail == mapbuf.NoFace && len(center.Blends[l]) == 0 {
			continue
		}
		fmt.Printf("  layer %d: head %s tail %s level %d\n", l, name(slot.Head), name(slot.Tail), slot.SmoothLevel)
		for _, b := range center.Blends[l] {
			fmt.Printf("    blend %-12s level %d members %08b border %04b corner %04b\n",
				name(b.Face), b.Level, b.Members, b.Border, b.Corner)
		}
	}
	p := center.Light
	fmt.Printf("  light: mode %s opacity %d opaque %v fogged %v per-pixel %v\n",
		p.Mode, p.Opacity, p.Opaque, p.Fogged, p.Field != nil && !p.Field.Constant())
	return 0
}

// --- all ---

func runAll(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading directory: %v\n", err)
		return 1
	}

	// Run validate first
	fmt.Println("=== VALIDATE ===")
	code := runValidate(dir)
	if code != 0 {
		return code
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json"+maps.CompressedSuffix)) {
			continue
		}
		fmt.Printf("\n=== STATS: %s ===\n", name)
		if c := runStats(filepath.Join(dir, name)); c != 0 {
			code = c
		}
	}

	return code
}
