package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/menusound/config"
	"github.com/milk9111/menusound/logging"
)

func main() {
	configPath := flag.String("config", "menusound.yaml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging and the debug overlay")
	flag.Parse()

	cfg, exists, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewFromConfig(os.Stderr, cfg.Log, *debug)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(logger)
	if !exists {
		logger.Info("config file not found, using defaults", "path", *configPath)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("menusound")

	game, err := NewGame(context.Background(), cfg, logger, *debug)
	if err != nil {
		log.Fatal(err)
	}
	defer game.Close()

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
