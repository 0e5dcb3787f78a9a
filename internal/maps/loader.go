package maps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks zstd-compressed scene files.
const CompressedSuffix = ".zst"

// LoadScene reads a JSON scene file from disk. Files ending in .zst are
// zstd-decompressed first.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene file: %w", err)
	}

	if strings.HasSuffix(path, CompressedSuffix) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}

	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scene JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveScene writes s as JSON, compressed when path ends in .zst.
func SaveScene(path string, s *Scene) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}

	if strings.HasSuffix(path, CompressedSuffix) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd close: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scene file: %w", err)
	}
	return nil
}

// isSceneFile reports whether name looks like a scene file.
func isSceneFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json"+CompressedSuffix)
}

// LoadScenes scans a directory for scene files, loads each, and returns
// them indexed by Name.
func LoadScenes(dir string) (map[string]*Scene, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenes directory: %w", err)
	}

	all := make(map[string]*Scene)
	for _, entry := range entries {
		if entry.IsDir() || !isSceneFile(entry.Name()) {
			continue
		}
		s, err := LoadScene(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		if _, exists := all[s.Name]; exists {
			return nil, fmt.Errorf("duplicate scene name %q in %s", s.Name, entry.Name())
		}
		all[s.Name] = s
	}
	return all, nil
}
