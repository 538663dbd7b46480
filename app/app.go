// Package app wires the content store and sound registry from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/milk9111/menusound/assets"
	"github.com/milk9111/menusound/config"
	"github.com/milk9111/menusound/sound"
)

const manifestRetryDelay = 200 * time.Millisecond

// Sources holds the loaded asset store and sound registry.
type Sources struct {
	Store    *assets.Store
	Registry *sound.Registry
	logger   *slog.Logger
}

// NewTransport picks the HTTP transport when a base URL is configured and the
// local directory otherwise.
func NewTransport(cfg config.Assets) (assets.Transport, error) {
	if cfg.BaseURL != "" {
		return assets.NewHTTPTransport(cfg.BaseURL, assets.WithTimeout(cfg.FetchTimeout))
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("app: assets dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("app: assets dir %s is not a directory", cfg.Dir)
	}
	return assets.NewFSTransport(os.DirFS(cfg.Dir)), nil
}

// Open builds the transport described by cfg and loads everything through it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Sources, error) {
	transport, err := NewTransport(cfg.Assets)
	if err != nil {
		return nil, err
	}
	return OpenWith(ctx, transport, cfg, logger)
}

// OpenWith loads the manifest and every configured definitions document.
func OpenWith(ctx context.Context, transport assets.Transport, cfg config.Config, logger *slog.Logger) (*Sources, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := assets.NewStore(transport,
		assets.WithManifestPath(cfg.Assets.Manifest),
		assets.WithManifestRetries(cfg.Assets.ManifestRetries, manifestRetryDelay),
		assets.WithVerify(cfg.Assets.VerifyHashes),
		assets.WithLogger(logger.With("component", "assets")),
	)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	opts := []sound.Option{
		sound.WithNamespace(cfg.Assets.Namespace),
		sound.WithLogger(logger.With("component", "sound")),
	}
	if cfg.Sounds.Seed != 0 {
		opts = append(opts, sound.WithSeed(cfg.Sounds.Seed))
	}
	registry := sound.NewRegistry(opts...)

	s := &Sources{Store: store, Registry: registry, logger: logger}
	for _, doc := range cfg.Sounds.Definitions {
		data, err := store.FetchBytes(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("app: definitions %s: %w", doc, err)
		}
		n, err := registry.LoadSource(doc, data)
		if err != nil {
			return nil, fmt.Errorf("app: definitions %s: %w", doc, err)
		}
		logger.Info("sound definitions loaded", "doc", doc, "events", n)
	}
	return s, nil
}

// ReloadFile merges a definitions document from local disk into the registry.
// Reloading the same path replaces what that file contributed before.
func (s *Sources) ReloadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("app: reload %s: %w", path, err)
	}
	n, err := s.Registry.LoadSource(path, data)
	if err != nil {
		return 0, fmt.Errorf("app: reload %s: %w", path, err)
	}
	s.logger.Info("sound definitions reloaded", "path", path, "events", n, "total", s.Registry.Len())
	return n, nil
}
