package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/milk9111/menusound/app"
	"github.com/milk9111/menusound/audio"
	"github.com/milk9111/menusound/config"
	"github.com/milk9111/menusound/music"
	"github.com/milk9111/menusound/sound"
)

const (
	baseWidth  = 1280
	baseHeight = 720
)

const clickEvent = "ui.button.click"

type Game struct {
	frames int
	debug  bool
	quit   bool

	ctx     context.Context
	logger  *slog.Logger
	sources *app.Sources
	engine  *audio.Engine
	music   *music.Controller
	watcher *sound.Watcher

	ui     *ebitenui.UI
	screen string
}

func NewGame(ctx context.Context, cfg config.Config, logger *slog.Logger, debug bool) (*Game, error) {
	sources, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	host := audio.NewEbitenHost(cfg.Audio.SampleRate)
	engine := audio.NewEngine(sources.Store, sources.Registry, host,
		audio.WithLogger(logger.With("component", "audio")),
		audio.WithNamespace(cfg.Assets.Namespace),
		audio.WithPreloadWorkers(cfg.Audio.PreloadWorkers),
		audio.WithMuted(cfg.Audio.Muted),
	)
	if err := engine.Preload(ctx, sources.Registry.PreloadClips()); err != nil {
		logger.Warn("preload failed", "err", err)
	}

	g := &Game{
		debug:   debug,
		ctx:     ctx,
		logger:  logger,
		sources: sources,
		engine:  engine,
		music: music.New(sources.Registry, engine,
			music.WithLogger(logger.With("component", "music")),
			music.WithScreens(cfg.Screens),
		),
	}

	if cfg.Sounds.WatchDir != "" {
		w, err := sound.NewWatcher(cfg.Sounds.WatchDir)
		if err != nil {
			logger.Warn("definition watcher disabled", "dir", cfg.Sounds.WatchDir, "err", err)
		} else {
			g.watcher = w
		}
	}

	g.ui = NewMenuUI(g)
	g.setScreen(screenTitle)
	return g, nil
}

func (g *Game) Close() error {
	g.music.Stop()
	g.engine.StopAll()
	if g.watcher != nil {
		return g.watcher.Close()
	}
	return nil
}

func (g *Game) click() {
	if err := g.engine.PlayEvent(g.ctx, clickEvent, audio.PlayOptions{}); err != nil {
		g.logger.Warn("click sound", "err", err)
	}
}

func (g *Game) setScreen(screen string) {
	g.screen = screen
	if err := g.music.ForScreen(g.ctx, screen); err != nil {
		g.logger.Warn("screen music", "screen", screen, "err", err)
	}
}

func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			if _, err := g.sources.ReloadFile(path); err != nil {
				g.logger.Warn("definition reload failed", "err", err)
			}
		case err, ok := <-g.watcher.Errors:
			if ok {
				g.logger.Warn("definition watcher", "err", err)
			}
		default:
			return
		}
	}
}

func (g *Game) Update() error {
	g.frames++
	if g.quit {
		return ebiten.Termination
	}

	g.drainWatcher()
	g.engine.Update()
	g.ui.Update()

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.ui.Draw(screen)

	msg := fmt.Sprintf("Frames: %d    FPS: %.2f", g.frames, ebiten.ActualFPS())
	if g.debug {
		msg += fmt.Sprintf("\nscreen: %s\nloop: %q gen=%d\nactive: %d",
			g.screen, g.music.EventID(), g.music.Generation(), g.engine.ActiveCount())
	}
	ebitenutil.DebugPrint(screen, msg)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
