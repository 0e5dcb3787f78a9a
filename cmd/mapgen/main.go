package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mapview/internal/maps"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed (0 = random)")
	size := flag.String("size", "96x64", "scene size as WxH")
	name := flag.String("name", "", "scene name (default: generated-<seed>)")
	out := flag.String("out", "", "output file, .zst compresses (default: stdout)")
	flag.Parse()

	w, h, err := parseSize(*size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Generating %dx%d scene (seed %d)...\n", w, h, *seed)

	s, err := maps.Generate(*seed, w, h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *name != "" {
		s.Name = *name
	}
	fmt.Fprintf(os.Stderr, "Spawn: (%d, %d), %d objects, %d lights\n", s.Spawn.X, s.Spawn.Y, len(s.Objects), len(s.Lights))

	if *out == "" {
		*out = "/dev/stdout"
	}
	if err := maps.SaveScene(*out, s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if info, err := os.Stat(*out); err == nil && info.Mode().IsRegular() {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", *out, info.Size())
	}

	// Print tile distribution summary
	counts := make(map[int]int)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			counts[s.Tiles[y][x]]++
		}
	}
	total := w * h
	fmt.Fprintf(os.Stderr, "\nTile distribution:\n")
	for i, t := range s.Legend {
		if c, ok := counts[i]; ok {
			fmt.Fprintf(os.Stderr, "  %-10s %5d (%5.1f%%)\n", t.Name, c, float64(c)/float64(total)*100)
		}
	}
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w < 10 {
		return 0, 0, fmt.Errorf("invalid width %q (minimum 10)", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 10 {
		return 0, 0, fmt.Errorf("invalid height %q (minimum 10)", parts[1])
	}
	return w, h, nil
}
