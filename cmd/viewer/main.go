package main

import (
	"flag"

	"github.com/hajimehoshi/ebiten/v2"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/logger"
	"mapview/internal/maps"
	"mapview/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: $MAPVIEW_CONFIG)")
	scenePath := flag.String("scene", "", "scene file, overrides the config")
	seed := flag.Int64("seed", 0, "generate a scene from this seed instead of loading one")
	flag.Parse()

	logger.Init()
	log := logger.Log

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *scenePath != "" {
		cfg.Assets.Scene = *scenePath
	}

	reg, err := faces.LoadManifest(cfg.Assets.Faces)
	if err != nil {
		log.WithError(err).Warn("face manifest unavailable, using built-in faces")
		reg = faces.Builtin(cfg.Lighting.TileSize)
	}

	var scene *maps.Scene
	if *seed != 0 {
		scene, err = maps.Generate(*seed, 96, 64)
	} else {
		scene, err = maps.LoadScene(cfg.Assets.Scene)
	}
	if err != nil {
		log.WithError(err).Warn("scene unavailable, using default scene")
		scene = maps.DefaultScene()
	}

	game, err := viewer.New(cfg, reg, scene, engine.NewMetrics(nil))
	if err != nil {
		log.WithError(err).Fatal("create viewer")
	}

	ebiten.SetWindowTitle("mapview - " + scene.Name)
	ebiten.SetWindowSize(game.Size())
	if err := ebiten.RunGame(game); err != nil {
		log.WithError(err).Fatal("viewer stopped")
	}
}
