package embedstore

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/metadata"
)

var _ promptdepot.TemplateStore = (*Store)(nil)

type entry struct {
	meta    promptdepot.TemplateVersionMetadata
	content string
}

// Store serves templates loaded eagerly from an fs.FS.
type Store struct {
	templates map[string][]promptdepot.SemanticVersion // ascending
	entries   map[string]map[promptdepot.SemanticVersion]entry
	ids       []string
}

type options struct {
	logger           zerolog.Logger
	templateFileName string
	metadataFileName string
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger that reports skipped entries during loading.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFileNames overrides the per-version file names (defaults template.md and metadata.yml).
func WithFileNames(templateFile, metadataFile string) Option {
	return func(o *options) {
		if templateFile != "" {
			o.templateFileName = templateFile
		}
		if metadataFile != "" {
			o.metadataFileName = metadataFile
		}
	}
}

// New loads every version under root in fsys. Entries that are not valid
// versions or have invalid metadata are skipped and logged; an unreadable root fails.
func New(fsys fs.FS, root string, opts ...Option) (*Store, error) {
	o := options{
		logger:           zerolog.Nop(),
		templateFileName: "template.md",
		metadataFileName: "metadata.yml",
	}
	for _, opt := range opts {
		opt(&o)
	}
	ids, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("embedstore: read %s: %w", root, err)
	}
	s := &Store{
		templates: make(map[string][]promptdepot.SemanticVersion),
		entries:   make(map[string]map[promptdepot.SemanticVersion]entry),
	}
	for _, idEntry := range ids {
		id := idEntry.Name()
		if !idEntry.IsDir() || strings.HasPrefix(id, ".") {
			continue
		}
		if err := promptdepot.ValidateID(id); err != nil {
			o.logger.Warn().Err(err).Str("template_id", id).Msg("skipping template")
			continue
		}
		versionDirs, err := fs.ReadDir(fsys, path.Join(root, id))
		if err != nil {
			return nil, fmt.Errorf("embedstore: read %s: %w", path.Join(root, id), err)
		}
		for _, vd := range versionDirs {
			name := vd.Name()
			if !vd.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			v, err := promptdepot.ParseVersion(name)
			if err != nil || v.String() != name {
				o.logger.Warn().Str("template_id", id).Str("dir", name).Msg("skipping non-version directory")
				continue
			}
			dir := path.Join(root, id, name)
			e, err := loadEntry(fsys, dir, o)
			if err != nil {
				o.logger.Error().Err(err).Str("template_id", id).Str("version", name).Msg("skipping unreadable version")
				continue
			}
			if e.meta.TemplateID != id || e.meta.Version != v {
				o.logger.Error().Str("template_id", id).Str("version", name).Msg("skipping version with mismatched metadata")
				continue
			}
			if s.entries[id] == nil {
				s.entries[id] = make(map[promptdepot.SemanticVersion]entry)
			}
			s.entries[id][v] = e
			s.templates[id] = append(s.templates[id], v)
		}
		if vs := s.templates[id]; len(vs) > 0 {
			promptdepot.SortVersions(vs)
			s.ids = append(s.ids, id)
		}
	}
	slices.Sort(s.ids)
	return s, nil
}

func loadEntry(fsys fs.FS, dir string, o options) (entry, error) {
	meta, err := metadata.ParseFS(fsys, path.Join(dir, o.metadataFileName))
	if err != nil {
		return entry{}, err
	}
	content, err := fs.ReadFile(fsys, path.Join(dir, o.templateFileName))
	if err != nil {
		return entry{}, fmt.Errorf("%w: %w", promptdepot.ErrTemplateNotFound, err)
	}
	return entry{meta: meta, content: string(content)}, nil
}

// ListTemplates returns every loaded template, sorted by id.
func (s *Store) ListTemplates(ctx context.Context) ([]promptdepot.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]promptdepot.Template, 0, len(s.ids))
	for _, id := range s.ids {
		vs := s.templates[id]
		out = append(out, promptdepot.Template{ID: id, LatestVersion: vs[len(vs)-1]})
	}
	return out, nil
}

// GetTemplate returns templateID with its latest version.
func (s *Store) GetTemplate(ctx context.Context, templateID string) (promptdepot.Template, error) {
	if err := ctx.Err(); err != nil {
		return promptdepot.Template{}, err
	}
	vs, ok := s.templates[templateID]
	if !ok {
		return promptdepot.Template{}, fmt.Errorf("%w: %q", promptdepot.ErrTemplateNotFound, templateID)
	}
	return promptdepot.Template{ID: templateID, LatestVersion: vs[len(vs)-1]}, nil
}

// ListTemplateVersions returns the versions of templateID in ascending order.
func (s *Store) ListTemplateVersions(ctx context.Context, templateID string) ([]promptdepot.TemplateVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vs, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", promptdepot.ErrTemplateNotFound, templateID)
	}
	out := make([]promptdepot.TemplateVersion, 0, len(vs))
	for _, v := range vs {
		m := s.entries[templateID][v].meta
		out = append(out, promptdepot.TemplateVersion{TemplateID: templateID, Version: v, Metadata: m.Clone()})
	}
	return out, nil
}

// GetTemplateVersion returns one version.
func (s *Store) GetTemplateVersion(ctx context.Context, templateID string, version promptdepot.SemanticVersion) (promptdepot.TemplateVersion, error) {
	e, err := s.lookup(ctx, templateID, version)
	if err != nil {
		return promptdepot.TemplateVersion{}, err
	}
	return promptdepot.TemplateVersion{TemplateID: templateID, Version: version, Metadata: e.meta.Clone()}, nil
}

// GetTemplateVersionContent returns the template source of one version.
func (s *Store) GetTemplateVersionContent(ctx context.Context, templateID string, version promptdepot.SemanticVersion) (string, error) {
	e, err := s.lookup(ctx, templateID, version)
	if err != nil {
		return "", err
	}
	return e.content, nil
}

func (s *Store) lookup(ctx context.Context, templateID string, version promptdepot.SemanticVersion) (entry, error) {
	if err := ctx.Err(); err != nil {
		return entry{}, err
	}
	e, ok := s.entries[templateID][version]
	if !ok {
		return entry{}, fmt.Errorf("%w: %w", promptdepot.ErrTemplateNotFound,
			&promptdepot.VersionError{TemplateID: templateID, Version: version, Err: fs.ErrNotExist})
	}
	return e, nil
}

// CreateTemplate always fails with promptdepot.ErrReadOnlyStore.
func (s *Store) CreateTemplate(context.Context, string) error {
	return fmt.Errorf("%w: embedstore", promptdepot.ErrReadOnlyStore)
}

// CreateVersion always fails with promptdepot.ErrReadOnlyStore.
func (s *Store) CreateVersion(context.Context, string, promptdepot.SemanticVersion, promptdepot.CreateVersionRequest) error {
	return fmt.Errorf("%w: embedstore", promptdepot.ErrReadOnlyStore)
}
