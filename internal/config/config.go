package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mapview/internal/light"
	"mapview/internal/mapbuf"
)

// Config is the root configuration document.
type Config struct {
	Map       MapConfig       `yaml:"map"`
	Lighting  LightingConfig  `yaml:"lighting"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Assets    AssetsConfig    `yaml:"assets"`
}

// MapConfig sizes the viewport and the fog-of-war margin around it.
type MapConfig struct {
	ViewWidth  int `yaml:"view_width"`
	ViewHeight int `yaml:"view_height"`
	FogMargin  int `yaml:"fog_margin"`
	Sight      int `yaml:"sight"`   // sight radius in tiles
	Flicker    int `yaml:"flicker"` // darkness jitter near lights, 0 disables
}

type LightingConfig struct {
	Mode     string `yaml:"mode"`
	TileSize int    `yaml:"tile_size"`
}

type SmoothingConfig struct {
	Enabled *bool `yaml:"enabled"`
}

type EngineConfig struct {
	TickMS    int `yaml:"tick_ms"`
	QueueSize int `yaml:"queue_size"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	HostKey     string `yaml:"host_key"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type AssetsConfig struct {
	Faces string `yaml:"faces"`
	Scene string `yaml:"scene"`
}

// Default returns the built-in configuration.
func Default() *Config {
	enabled := true
	return &Config{
		Map:       MapConfig{ViewWidth: 25, ViewHeight: 25, FogMargin: 10, Sight: 10},
		Lighting:  LightingConfig{Mode: light.PerPixel.String(), TileSize: 32},
		Smoothing: SmoothingConfig{Enabled: &enabled},
		Engine:    EngineConfig{TickMS: 100, QueueSize: 1024},
		Server: ServerConfig{
			Addr:        ":2222",
			HostKey:     "host_key",
			MetricsAddr: ":2112",
		},
		Assets: AssetsConfig{
			Faces: "assets/faces/faces.yaml",
			Scene: "assets/scenes/demo.json",
		},
	}
}

// Load reads a YAML config file and fills unset fields from Default.
// An empty path falls back to MAPVIEW_CONFIG; with neither set the
// defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MAPVIEW_CONFIG")
	}
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.fillDefaults(Default())
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults(d *Config) {
	if c.Map.ViewWidth == 0 {
		c.Map.ViewWidth = d.Map.ViewWidth
	}
	if c.Map.ViewHeight == 0 {
		c.Map.ViewHeight = d.Map.ViewHeight
	}
	if c.Map.FogMargin == 0 {
		c.Map.FogMargin = d.Map.FogMargin
	}
	if c.Map.Sight == 0 {
		c.Map.Sight = d.Map.Sight
	}
	if c.Lighting.Mode == "" {
		c.Lighting.Mode = d.Lighting.Mode
	}
	if c.Lighting.TileSize == 0 {
		c.Lighting.TileSize = d.Lighting.TileSize
	}
	if c.Smoothing.Enabled == nil {
		c.Smoothing.Enabled = d.Smoothing.Enabled
	}
	if c.Engine.TickMS == 0 {
		c.Engine.TickMS = d.Engine.TickMS
	}
	if c.Engine.QueueSize == 0 {
		c.Engine.QueueSize = d.Engine.QueueSize
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.HostKey == "" {
		c.Server.HostKey = d.Server.HostKey
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = d.Server.MetricsAddr
	}
	if c.Assets.Faces == "" {
		c.Assets.Faces = d.Assets.Faces
	}
	if c.Assets.Scene == "" {
		c.Assets.Scene = d.Assets.Scene
	}
}

// applyEnv lets the environment override listen addresses.
// Priority: MAPVIEW_ADDR, then PORT, then the file.
func (c *Config) applyEnv() {
	if addr := os.Getenv("MAPVIEW_ADDR"); addr != "" {
		c.Server.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Addr = ":" + port
		}
	}
	if addr := os.Getenv("MAPVIEW_METRICS_ADDR"); addr != "" {
		c.Server.MetricsAddr = addr
	}
}

// Validate rejects sizes the engine cannot work with.
func (c *Config) Validate() error {
	if c.Map.ViewWidth < 1 || c.Map.ViewHeight < 1 {
		return fmt.Errorf("map: view %dx%d must be positive", c.Map.ViewWidth, c.Map.ViewHeight)
	}
	if c.Map.FogMargin < 0 {
		return fmt.Errorf("map: fog_margin %d must not be negative", c.Map.FogMargin)
	}
	if c.Map.Flicker < 0 || c.Map.Flicker > 255 {
		return fmt.Errorf("map: flicker %d outside 0..255", c.Map.Flicker)
	}
	if _, err := light.ParseMode(c.Lighting.Mode); err != nil {
		return fmt.Errorf("lighting: %w", err)
	}
	if c.Lighting.TileSize < 2 {
		return fmt.Errorf("lighting: tile_size %d too small", c.Lighting.TileSize)
	}
	if c.Engine.TickMS < 1 {
		return fmt.Errorf("engine: tick_ms %d must be positive", c.Engine.TickMS)
	}
	if c.Engine.QueueSize < 1 {
		return fmt.Errorf("engine: queue_size %d must be positive", c.Engine.QueueSize)
	}
	return nil
}

// BufferSize derives the virtual map dimensions: the viewport plus the
// fog margin on each side, never less than the recenter margin.
func (m MapConfig) BufferSize() (int, int) {
	margin := max(m.FogMargin, mapbuf.Margin)
	return m.ViewWidth + 2*margin, m.ViewHeight + 2*margin
}

// LightingMode returns the parsed lighting mode. Validate has already
// checked it, so parse errors fall back to Off.
func (c *Config) LightingMode() light.Mode {
	m, err := light.ParseMode(c.Lighting.Mode)
	if err != nil {
		return light.Off
	}
	return m
}

// SmoothingEnabled reports whether edge blending is on.
func (c *Config) SmoothingEnabled() bool {
	return c.Smoothing.Enabled == nil || *c.Smoothing.Enabled
}

// TickInterval is the engine tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.TickMS) * time.Millisecond
}
