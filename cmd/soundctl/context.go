package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/milk9111/menusound/app"
	"github.com/milk9111/menusound/config"
	"github.com/milk9111/menusound/logging"
)

type commandContext struct {
	configFlag  *string
	dirFlag     *string
	baseURLFlag *string
	verbose     *bool

	seed uint64

	config  *config.Config
	sources *app.Sources
}

func newCommandContext(configFlag, dirFlag, baseURLFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		dirFlag:     dirFlag,
		baseURLFlag: baseURLFlag,
		verbose:     verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	if dir := strings.TrimSpace(*c.dirFlag); dir != "" {
		cfg.Assets.Dir = dir
		cfg.Assets.BaseURL = ""
	}
	if base := strings.TrimSpace(*c.baseURLFlag); base != "" {
		cfg.Assets.BaseURL = base
	}
	c.config = &cfg
	return c.config, nil
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	if c.verbose == nil || !*c.verbose {
		return logging.Discard()
	}
	logger, err := logging.New(w, logging.Options{Level: "debug", Format: "text"})
	if err != nil {
		return logging.Discard()
	}
	return logger
}

func (c *commandContext) ensureSources(ctx context.Context, stderr io.Writer) (*app.Sources, error) {
	if c.sources != nil {
		return c.sources, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if c.seed != 0 {
		cfg.Sounds.Seed = c.seed
	}
	sources, err := app.Open(ctx, *cfg, c.logger(stderr))
	if err != nil {
		return nil, err
	}
	c.sources = sources
	return sources, nil
}
