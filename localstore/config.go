package localstore

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/skosovsky/promptdepot"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultInitialVersion   = "1.0.0"
	DefaultTemplateFileName = "template.md"
	DefaultMetadataFileName = "metadata.yml"
)

// Config configures a Store. Zero-valued optional fields take the defaults above.
type Config struct {
	BasePath         string `koanf:"base_path" validate:"required"`
	InitialVersion   string `koanf:"initial_version"`
	TemplateFileName string `koanf:"template_file_name" validate:"required,nefield=MetadataFileName,excludesall=/\\"`
	MetadataFileName string `koanf:"metadata_file_name" validate:"required,excludesall=/\\"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c Config) withDefaults() Config {
	if c.InitialVersion == "" {
		c.InitialVersion = DefaultInitialVersion
	}
	if c.TemplateFileName == "" {
		c.TemplateFileName = DefaultTemplateFileName
	}
	if c.MetadataFileName == "" {
		c.MetadataFileName = DefaultMetadataFileName
	}
	return c
}

// Validate reports whether c (after defaults) describes a usable store.
// Failures wrap promptdepot.ErrInvalidArgument.
func (c Config) Validate() error {
	c = c.withDefaults()
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: localstore config: %w", promptdepot.ErrInvalidArgument, err)
	}
	if _, err := promptdepot.ParseVersion(c.InitialVersion); err != nil {
		return fmt.Errorf("%w: localstore config initial_version: %w", promptdepot.ErrInvalidArgument, err)
	}
	return nil
}

// ConfigFromMap decodes a raw configuration map (keys base_path, initial_version,
// template_file_name, metadata_file_name) into a Config.
func ConfigFromMap(raw map[string]any) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, "."), nil); err != nil {
		return Config{}, fmt.Errorf("localstore: load config: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: localstore config: %w", promptdepot.ErrInvalidArgument, err)
	}
	return cfg, nil
}

// NewFromMap builds a Store from a raw configuration map.
func NewFromMap(raw map[string]any, opts ...Option) (*Store, error) {
	cfg, err := ConfigFromMap(raw)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
