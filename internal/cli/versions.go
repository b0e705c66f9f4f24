package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/metadata"
	"github.com/spf13/cobra"
)

type versionsCreateFlags struct {
	version      string
	fromPrevious bool
	empty        bool
	withContent  bool
	content      string
	description  string
	author       string
	tags         []string
	model        string
	changelog    []string
}

func (a *app) versionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Manage versions of a prompt template",
	}

	var f versionsCreateFlags
	create := &cobra.Command{
		Use:   "create <template_id>",
		Short: "Create a new version of a prompt template",
		Long: `Create a new version of a prompt template.

Content comes from the latest version by default (--from-previous), or is empty
(--empty), or is given with --with-content --content TEXT. When --version is
omitted the next minor version after the latest one is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVersionsCreate(cmd, args[0], f)
		},
	}
	flags := create.Flags()
	flags.StringVarP(&f.version, "version", "v", "", "version to create (default: next minor after latest)")
	flags.BoolVarP(&f.fromPrevious, "from-previous", "p", false, "copy content from the latest version (default)")
	flags.BoolVar(&f.empty, "empty", false, "create the version with empty content")
	flags.BoolVar(&f.withContent, "with-content", false, "create the version with --content")
	flags.StringVarP(&f.content, "content", "c", "", "content for --with-content")
	flags.StringVar(&f.description, "description", "", "version description")
	flags.StringVar(&f.author, "author", "", "version author")
	flags.StringArrayVar(&f.tags, "tag", nil, "tag (repeatable)")
	flags.StringVar(&f.model, "model", "", "target model")
	flags.StringArrayVar(&f.changelog, "changelog", nil, "changelog entry (repeatable)")
	create.MarkFlagsMutuallyExclusive("from-previous", "empty", "with-content")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "ls <template_id>",
			Short: "List all versions of a prompt template",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runVersionsList,
		},
		&cobra.Command{
			Use:   "show <template_id> <version>",
			Short: "Show one version: metadata and content",
			Args:  cobra.ExactArgs(2),
			RunE:  a.runVersionsShow,
		},
	)
	return cmd
}

func (f versionsCreateFlags) strategy() promptdepot.CreationStrategy {
	switch {
	case f.empty:
		return promptdepot.StrategyEmpty
	case f.withContent:
		return promptdepot.StrategyWithContent
	default:
		return promptdepot.StrategyFromPreviousVersion
	}
}

func (a *app) runVersionsCreate(cmd *cobra.Command, id string, f versionsCreateFlags) error {
	ctx := cmd.Context()
	version, err := a.resolveVersion(cmd, id, f.version)
	if err != nil {
		return err
	}

	req := promptdepot.CreateVersionRequest{Strategy: f.strategy()}
	contentSet := cmd.Flags().Changed("content")
	switch {
	case req.Strategy == promptdepot.StrategyWithContent && !contentSet:
		return fmt.Errorf("%w: --with-content requires --content", promptdepot.ErrInvalidArgument)
	case req.Strategy == promptdepot.StrategyWithContent:
		req.Content = &f.content
	case contentSet:
		a.logger.Warn().Str("strategy", req.Strategy.String()).Msg("content ignored because of the creation strategy")
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: --content is ignored because of the creation strategy.")
	}

	md := promptdepot.NewMetadata(id, version, a.now())
	md.Description = f.description
	md.Author = f.author
	md.Tags = promptdepot.NormalizeTags(f.tags)
	md.Model = f.model
	if f.changelog != nil {
		md.Changelog = f.changelog
	}
	req.Metadata = &md

	if err := a.store.CreateVersion(ctx, id, version, req); err != nil {
		if errors.Is(err, promptdepot.ErrVersionAlreadyExists) {
			return fmt.Errorf("version %s of template %q already exists: %w", version, id, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Version %s of template %q created (%s).\n", version, id, req.Strategy)
	return nil
}

func (a *app) resolveVersion(cmd *cobra.Command, id, raw string) (promptdepot.SemanticVersion, error) {
	if raw != "" {
		return promptdepot.ParseVersion(raw)
	}
	tpl, err := a.store.GetTemplate(cmd.Context(), id)
	if err != nil {
		return promptdepot.SemanticVersion{}, fmt.Errorf("--version is required for a template without versions: %w", err)
	}
	next := tpl.LatestVersion.NextMinor()
	fmt.Fprintf(cmd.ErrOrStderr(), "No --version given; latest is %s, using %s.\n", tpl.LatestVersion, next)
	return next, nil
}

func (a *app) runVersionsList(cmd *cobra.Command, args []string) error {
	versions, err := a.store.ListTemplateVersions(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		m := v.Metadata
		rows = append(rows, []string{
			v.Version.String(),
			orDash(m.Description),
			m.CreatedAt.Format(time.RFC3339),
			orDash(m.Author),
			orDash(strings.Join(m.Tags, ", ")),
			orDash(m.Model),
			orDash(strings.Join(m.Changelog, "; ")),
		})
	}
	return writeTable(cmd.OutOrStdout(),
		[]string{"VERSION", "DESCRIPTION", "CREATED AT", "AUTHOR", "TAGS", "MODEL", "CHANGELOG"}, rows)
}

func (a *app) runVersionsShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	version, err := promptdepot.ParseVersion(args[1])
	if err != nil {
		return err
	}
	tv, err := a.store.GetTemplateVersion(cmd.Context(), id, version)
	if err != nil {
		return err
	}
	content, err := a.store.GetTemplateVersionContent(cmd.Context(), id, version)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := metadata.Write(out, tv.Metadata); err != nil {
		return err
	}
	fmt.Fprintln(out, "---")
	fmt.Fprintln(out, content)
	return nil
}
