package cli

import (
	"errors"
	"fmt"

	"github.com/skosovsky/promptdepot"
	"github.com/spf13/cobra"
)

func (a *app) templatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage prompt templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <template_id>",
			Short: "Create a new prompt template",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runTemplatesCreate,
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List all prompt templates",
			Args:  cobra.NoArgs,
			RunE:  a.runTemplatesList,
		},
		&cobra.Command{
			Use:   "show <template_id>",
			Short: "Show a prompt template and its versions",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runTemplatesShow,
		},
	)
	return cmd
}

func (a *app) runTemplatesCreate(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := a.store.CreateTemplate(cmd.Context(), id); err != nil {
		if errors.Is(err, promptdepot.ErrTemplateAlreadyExists) {
			return fmt.Errorf("template %q already exists: %w", id, err)
		}
		return err
	}
	tpl, err := a.store.GetTemplate(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Template %q created at version %s.\n", id, tpl.LatestVersion)
	return nil
}

func (a *app) runTemplatesList(cmd *cobra.Command, _ []string) error {
	templates, err := a.store.ListTemplates(cmd.Context())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{t.ID, t.LatestVersion.String()})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "LATEST VERSION"}, rows)
}

func (a *app) runTemplatesShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	tpl, err := a.store.GetTemplate(cmd.Context(), id)
	if err != nil {
		return err
	}
	versions, err := a.store.ListTemplateVersions(cmd.Context(), id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Template: %s (%s)\n\n", tpl.ID, tpl.LatestVersion)
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{v.Version.String(), orDash(v.Metadata.Description)})
	}
	return writeTable(out, []string{"VERSION", "DESCRIPTION"}, rows)
}
