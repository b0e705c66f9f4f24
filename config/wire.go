package config

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/localstore"
	"github.com/skosovsky/promptdepot/renderer"
)

// OpenStore builds the configured TemplateStore.
func (c *Config) OpenStore(logger zerolog.Logger) (promptdepot.TemplateStore, error) {
	switch c.Store.Kind {
	case "local":
		return localstore.NewFromMap(c.Store.Config, localstore.WithLogger(logger))
	default:
		return nil, fmt.Errorf("%w: unknown store kind %q", promptdepot.ErrInvalidArgument, c.Store.Kind)
	}
}

// RendererFactory returns the configured factory.
func (c *Config) RendererFactory() (promptdepot.RendererFactory, error) {
	return renderer.ByName(c.Renderer.Kind)
}

// NewManager opens the store and builds a Manager using renderer.config as the default RendererConfig.
func (c *Config) NewManager(logger zerolog.Logger) (*promptdepot.Manager, error) {
	store, err := c.OpenStore(logger)
	if err != nil {
		return nil, err
	}
	factory, err := c.RendererFactory()
	if err != nil {
		return nil, err
	}
	return promptdepot.NewManager(store, factory,
		promptdepot.WithDefaultConfig(promptdepot.RendererConfig(c.Renderer.Config)),
		promptdepot.WithLogger(logger),
	), nil
}

// Logger returns a zerolog.Logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
