// Package config loads menusound settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Assets describes where the content store reads from.
type Assets struct {
	// BaseURL serves assets over HTTP. Dir is used when BaseURL is empty.
	BaseURL         string        `yaml:"base_url" env:"MENUSOUND_ASSETS_BASE_URL"`
	Dir             string        `yaml:"dir" env:"MENUSOUND_ASSETS_DIR"`
	Manifest        string        `yaml:"manifest" env:"MENUSOUND_ASSETS_MANIFEST"`
	Namespace       string        `yaml:"namespace" env:"MENUSOUND_ASSETS_NAMESPACE"`
	VerifyHashes    bool          `yaml:"verify_hashes" env:"MENUSOUND_ASSETS_VERIFY_HASHES"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"MENUSOUND_ASSETS_FETCH_TIMEOUT"`
	ManifestRetries int           `yaml:"manifest_retries" env:"MENUSOUND_ASSETS_MANIFEST_RETRIES"`
}

// Sounds configures the sound registry.
type Sounds struct {
	Definitions []string `yaml:"definitions" env:"MENUSOUND_SOUNDS_DEFINITIONS" envSeparator:","`
	Seed        uint64   `yaml:"seed" env:"MENUSOUND_SOUNDS_SEED"`
	WatchDir    string   `yaml:"watch_dir" env:"MENUSOUND_SOUNDS_WATCH_DIR"`
}

// Audio configures the playback host.
type Audio struct {
	SampleRate     int  `yaml:"sample_rate" env:"MENUSOUND_AUDIO_SAMPLE_RATE"`
	PreloadWorkers int  `yaml:"preload_workers" env:"MENUSOUND_AUDIO_PRELOAD_WORKERS"`
	Muted          bool `yaml:"muted" env:"MENUSOUND_AUDIO_MUTED"`
}

// Log configures the slog logger.
type Log struct {
	Level  string `yaml:"level" env:"MENUSOUND_LOG_LEVEL"`
	Format string `yaml:"format" env:"MENUSOUND_LOG_FORMAT"`
}

// Config is the root configuration document.
type Config struct {
	Assets Assets `yaml:"assets"`
	Sounds Sounds `yaml:"sounds"`
	Audio  Audio  `yaml:"audio"`
	Log    Log    `yaml:"log"`

	// Screens maps a UI screen name to the music event played while it is shown.
	Screens map[string]string `yaml:"screens"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Assets: Assets{
			Dir:             "assets",
			Manifest:        "objects.json",
			Namespace:       "minecraft",
			FetchTimeout:    10 * time.Second,
			ManifestRetries: 3,
		},
		Sounds: Sounds{
			Definitions: []string{"minecraft/sounds.json"},
		},
		Audio: Audio{
			SampleRate:     44100,
			PreloadWorkers: 4,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Screens: map[string]string{
			"title":  "music.menu",
			"single": "music.menu",
		},
	}
}

// Load reads path on top of Default, applies environment overrides and
// validates the result. A missing file is not an error; exists reports
// whether it was found.
func Load(path string) (cfg Config, exists bool, err error) {
	cfg = Default()

	if path != "" {
		data, readErr := os.ReadFile(path)
		switch {
		case readErr == nil:
			exists = true
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, true, fmt.Errorf("config: unmarshal %s: %w", path, err)
			}
		case errors.Is(readErr, fs.ErrNotExist):
		default:
			return Config{}, false, fmt.Errorf("config: load %s: %w", path, readErr)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, exists, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, exists, err
	}
	return cfg, exists, nil
}

func (c *Config) normalize() {
	c.Assets.BaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.BaseURL), "/")
	c.Assets.Dir = strings.TrimSpace(c.Assets.Dir)
	c.Assets.Namespace = strings.TrimSpace(c.Assets.Namespace)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	defs := c.Sounds.Definitions[:0]
	for _, d := range c.Sounds.Definitions {
		if d = strings.TrimSpace(d); d != "" {
			defs = append(defs, d)
		}
	}
	c.Sounds.Definitions = defs
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Assets.BaseURL == "" && c.Assets.Dir == "" {
		return errors.New("config: assets.base_url or assets.dir is required")
	}
	if strings.TrimSpace(c.Assets.Manifest) == "" {
		return errors.New("config: assets.manifest is required")
	}
	if c.Assets.Namespace == "" {
		return errors.New("config: assets.namespace is required")
	}
	if c.Assets.FetchTimeout < 0 {
		return fmt.Errorf("config: assets.fetch_timeout must not be negative, got %s", c.Assets.FetchTimeout)
	}
	if c.Assets.ManifestRetries < 1 {
		return fmt.Errorf("config: assets.manifest_retries must be at least 1, got %d", c.Assets.ManifestRetries)
	}
	if len(c.Sounds.Definitions) == 0 {
		return errors.New("config: sounds.definitions must list at least one document")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.PreloadWorkers < 1 {
		return fmt.Errorf("config: audio.preload_workers must be at least 1, got %d", c.Audio.PreloadWorkers)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format: unsupported value %q", c.Log.Format)
	}
	return nil
}
