// Package cli implements the promptdepot command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/config"
	"github.com/spf13/cobra"
)

type app struct {
	configFile string
	logLevel   string
	dir        string
	now        func() time.Time

	cfg    *config.Config
	logger zerolog.Logger
	store  promptdepot.TemplateStore
}

// Option customizes the command tree; used by tests.
type Option func(*app)

// WithDir sets the directory searched for configuration files.
func WithDir(dir string) Option {
	return func(a *app) { a.dir = dir }
}

// WithClock overrides the time stamped on created versions.
func WithClock(now func() time.Time) Option {
	return func(a *app) { a.now = now }
}

// NewRootCommand builds the promptdepot command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{dir: ".", now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	root := &cobra.Command{
		Use:               "promptdepot",
		Short:             "Versioned prompt template store",
		Long:              "Create, inspect and render versioned prompt templates.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./promptdepot.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	root.AddCommand(a.templatesCommand(), a.versionsCommand(), a.renderCommand())
	return root
}

func (a *app) init(stderr io.Writer) error {
	opts := []config.LoadOption{config.WithDir(a.dir)}
	if a.configFile != "" {
		opts = append(opts, config.WithFile(a.configFile))
	}
	if a.logLevel != "" {
		opts = append(opts, config.WithOverrides(map[string]any{"log.level": a.logLevel}))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(stderr)
	store, err := cfg.OpenStore(a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) int {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// Main is the entry point used by cmd/promptdepot.
func Main() int {
	return Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}
