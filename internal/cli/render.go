package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/skosovsky/promptdepot"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) renderCommand() *cobra.Command {
	var (
		pairs    []string
		varsFile string
	)
	cmd := &cobra.Command{
		Use:   "render <template_id> <version>",
		Short: "Render a template version with variables",
		Long: `Render a template version with the configured renderer.

Variables come from --vars-file (a YAML mapping) and then --var key=value,
which wins on conflicts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := loadVars(varsFile, pairs)
			if err != nil {
				return err
			}
			mgr, err := a.cfg.NewManager(a.logger)
			if err != nil {
				return err
			}
			out, err := mgr.GetPrompt(cmd.Context(), args[0], args[1], vars)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "var", nil, "variable as key=value (repeatable)")
	cmd.Flags().StringVar(&varsFile, "vars-file", "", "YAML file with variables")
	return cmd
}

func loadVars(path string, pairs []string) (map[string]any, error) {
	vars := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-supplied CLI argument
		if err != nil {
			return nil, fmt.Errorf("read vars file: %w", err)
		}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("%w: vars file %s: %w", promptdepot.ErrInvalidArgument, path, err)
		}
		if vars == nil {
			vars = make(map[string]any)
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: --var %q must be key=value", promptdepot.ErrInvalidArgument, p)
		}
		vars[k] = v
	}
	return vars, nil
}
