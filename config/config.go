// Package config loads promptdepot settings from defaults, pyproject.toml,
// promptdepot.toml and PROMPTDEPOT_ environment variables, and turns them into
// a configured store, renderer factory and Manager.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/skosovsky/promptdepot"
)

// File names looked up in the working directory.
const (
	PyprojectFile = "pyproject.toml"
	DefaultFile   = "promptdepot.toml"
	EnvPrefix     = "PROMPTDEPOT_"
	pyprojectKey  = "tool.promptdepot"
)

// Config is the merged configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store"`
	Renderer RendererConfig `koanf:"renderer"`
	Log      LogConfig      `koanf:"log"`
}

// StoreConfig selects the TemplateStore implementation. Config is passed to it verbatim.
type StoreConfig struct {
	Kind   string         `koanf:"kind" validate:"oneof=local"`
	Config map[string]any `koanf:"config"`
}

// RendererConfig selects the renderer factory. Config becomes the Manager's default RendererConfig.
type RendererConfig struct {
	Kind   string         `koanf:"kind" validate:"oneof=gotemplate placeholder"`
	Config map[string]any `koanf:"config"`
}

// LogConfig controls the zerolog logger built by Config.Logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

func defaults() map[string]any {
	return map[string]any{
		"store.kind":                   "local",
		"store.config.base_path":       "prompts",
		"store.config.initial_version": "1.0.0",
		"renderer.kind":                "gotemplate",
		"log.level":                    "info",
		"log.format":                   "console",
	}
}

type loadOptions struct {
	dir       string
	file      string
	overrides map[string]any
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithDir sets the directory searched for pyproject.toml and promptdepot.toml (default ".").
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) { o.dir = dir }
}

// WithFile loads path instead of <dir>/promptdepot.toml. The file must exist.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) { o.file = path }
}

// WithOverrides applies flat dotted keys (e.g. "log.level") after every other source.
func WithOverrides(values map[string]any) LoadOption {
	return func(o *loadOptions) { o.overrides = values }
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load merges, in increasing precedence: built-in defaults, the
// [tool.promptdepot] table of pyproject.toml, promptdepot.toml (or the file
// given with WithFile), PROMPTDEPOT_ environment variables (double underscore
// separates levels, e.g. PROMPTDEPOT_STORE__CONFIG__BASE_PATH) and overrides.
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	pyproject := filepath.Join(o.dir, PyprojectFile)
	if exists(pyproject) {
		pk := koanf.New(".")
		if err := pk.Load(file.Provider(pyproject), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", pyproject, err)
		}
		if err := k.Merge(pk.Cut(pyprojectKey)); err != nil {
			return nil, fmt.Errorf("config: %s: %w", pyproject, err)
		}
	}

	switch {
	case o.file != "":
		if err := k.Load(file.Provider(o.file), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", o.file, err)
		}
	case exists(filepath.Join(o.dir, DefaultFile)):
		path := filepath.Join(o.dir, DefaultFile)
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if len(o.overrides) > 0 {
		if err := k.Load(confmap.Provider(o.overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("config: overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps PROMPTDEPOT_STORE__CONFIG__BASE_PATH to store.config.base_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the closed sets of store kinds, renderer kinds and log settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: config: %w", promptdepot.ErrInvalidArgument, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
