package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/metadata"
)

// Ensures Store implements promptdepot.TemplateStore.
var _ promptdepot.TemplateStore = (*Store)(nil)

const stagingPrefix = ".staging-"

// Store is a filesystem TemplateStore. It is safe for concurrent use, including
// by several processes sharing the same base directory.
type Store struct {
	cfg     Config
	initial promptdepot.SemanticVersion
	logger  zerolog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	cache   map[string]promptdepot.TemplateVersionMetadata
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped entries and creation events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used to stamp synthesized metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store rooted at cfg.BasePath. The directory is created lazily
// on the first write.
func New(cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		cfg:     cfg,
		initial: promptdepot.MustParseVersion(cfg.InitialVersion),
		logger:  zerolog.Nop(),
		now:     time.Now,
		cache:   make(map[string]promptdepot.TemplateVersionMetadata),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BasePath returns the root directory of the store.
func (s *Store) BasePath() string { return s.cfg.BasePath }

// Reload drops cached metadata so the next read goes to disk.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]promptdepot.TemplateVersionMetadata)
}

// ListTemplates returns every template that has at least one readable version, sorted by id.
func (s *Store) ListTemplates(ctx context.Context) ([]promptdepot.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.cfg.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []promptdepot.Template{}, nil
		}
		return nil, fmt.Errorf("localstore: list templates: %w", err)
	}
	out := make([]promptdepot.Template, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		tpl, err := s.GetTemplate(ctx, e.Name())
		if err != nil {
			if errors.Is(err, promptdepot.ErrTemplateNotFound) || errors.Is(err, promptdepot.ErrInvalidName) {
				s.logger.Warn().Err(err).Str("template_id", e.Name()).Msg("skipping template")
				continue
			}
			return nil, err
		}
		out = append(out, tpl)
	}
	// os.ReadDir sorts by file name.
	return out, nil
}

// GetTemplate returns templateID with its latest readable version.
func (s *Store) GetTemplate(ctx context.Context, templateID string) (promptdepot.Template, error) {
	versions, err := s.ListTemplateVersions(ctx, templateID)
	if err != nil {
		return promptdepot.Template{}, err
	}
	return promptdepot.Template{ID: templateID, LatestVersion: versions[len(versions)-1].Version}, nil
}

// CreateTemplate creates templateID at the configured initial version with empty content.
func (s *Store) CreateTemplate(ctx context.Context, templateID string) error {
	if err := promptdepot.ValidateID(templateID); err != nil {
		return err
	}
	if _, err := s.ListTemplateVersions(ctx, templateID); err == nil {
		return fmt.Errorf("%w: %q: %w", promptdepot.ErrTemplateAlreadyExists, templateID,
			&promptdepot.VersionError{TemplateID: templateID, Version: s.initial, Err: promptdepot.ErrVersionAlreadyExists})
	} else if !errors.Is(err, promptdepot.ErrTemplateNotFound) {
		return err
	}
	err := s.CreateVersion(ctx, templateID, s.initial, promptdepot.CreateVersionRequest{Strategy: promptdepot.StrategyEmpty})
	if errors.Is(err, promptdepot.ErrVersionAlreadyExists) {
		return fmt.Errorf("%w: %q: %w", promptdepot.ErrTemplateAlreadyExists, templateID, err)
	}
	return err
}

// ListTemplateVersions returns the readable versions of templateID in ascending order.
// Directories that are not canonical versions or whose metadata is invalid are skipped.
func (s *Store) ListTemplateVersions(ctx context.Context, templateID string) ([]promptdepot.TemplateVersion, error) {
	if err := promptdepot.ValidateID(templateID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.templateDir(templateID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", promptdepot.ErrTemplateNotFound, templateID)
		}
		return nil, fmt.Errorf("localstore: list versions of %q: %w", templateID, err)
	}
	out := make([]promptdepot.TemplateVersion, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		v, err := promptdepot.ParseVersion(name)
		if err != nil || v.String() != name {
			s.logger.Warn().Str("template_id", templateID).Str("dir", name).Msg("skipping non-version directory")
			continue
		}
		tv, err := s.GetTemplateVersion(ctx, templateID, v)
		if err != nil {
			if errors.Is(err, promptdepot.ErrTemplateNotFound) {
				s.logger.Error().Err(err).Str("template_id", templateID).Str("version", name).Msg("skipping unreadable version")
				continue
			}
			return nil, err
		}
		out = append(out, tv)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q has no versions", promptdepot.ErrTemplateNotFound, templateID)
	}
	slices.SortFunc(out, func(a, b promptdepot.TemplateVersion) int { return a.Version.Compare(b.Version) })
	return out, nil
}

// GetTemplateVersion returns one version. Invalid metadata is reported as
// promptdepot.ErrTemplateNotFound wrapping the validation error.
func (s *Store) GetTemplateVersion(ctx context.Context, templateID string, version promptdepot.SemanticVersion) (promptdepot.TemplateVersion, error) {
	if err := promptdepot.ValidateID(templateID); err != nil {
		return promptdepot.TemplateVersion{}, err
	}
	key := templateID + "@" + version.String()
	s.mu.RLock()
	m, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return newVersion(m), nil
	}
	if err := ctx.Err(); err != nil {
		return promptdepot.TemplateVersion{}, err
	}
	m, err := metadata.ParseFile(filepath.Join(s.versionDir(templateID, version), s.cfg.MetadataFileName))
	if err != nil {
		if errors.Is(err, promptdepot.ErrInvalidMetadata) {
			return promptdepot.TemplateVersion{}, fmt.Errorf("%w: %w", promptdepot.ErrTemplateNotFound,
				&promptdepot.VersionError{TemplateID: templateID, Version: version, Err: err})
		}
		return promptdepot.TemplateVersion{}, &promptdepot.VersionError{TemplateID: templateID, Version: version, Err: err}
	}
	if m.TemplateID != templateID || m.Version != version {
		return promptdepot.TemplateVersion{}, fmt.Errorf("%w: %w", promptdepot.ErrTemplateNotFound,
			&promptdepot.VersionError{TemplateID: templateID, Version: version,
				Err: fmt.Errorf("%w: metadata names %s@%s", promptdepot.ErrInvalidMetadata, m.TemplateID, m.Version)})
	}
	s.mu.Lock()
	s.cache[key] = m
	s.mu.Unlock()
	return newVersion(m), nil
}

func newVersion(m promptdepot.TemplateVersionMetadata) promptdepot.TemplateVersion {
	return promptdepot.TemplateVersion{TemplateID: m.TemplateID, Version: m.Version, Metadata: m.Clone()}
}

// GetTemplateVersionContent returns the template source of one version.
// A version whose metadata is missing or invalid has no readable content.
func (s *Store) GetTemplateVersionContent(ctx context.Context, templateID string, version promptdepot.SemanticVersion) (string, error) {
	if _, err := s.GetTemplateVersion(ctx, templateID, version); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.versionDir(templateID, version), s.cfg.TemplateFileName)
	data, err := os.ReadFile(path) // #nosec G304 -- path segments are validated
	if err != nil {
		return "", fmt.Errorf("%w: %w", promptdepot.ErrTemplateNotFound,
			&promptdepot.VersionError{TemplateID: templateID, Version: version, Err: err})
	}
	return string(data), nil
}

// CreateVersion publishes a new version of templateID. The version directory
// appears atomically with both files in place; a concurrent or earlier
// creator of the same version makes this call fail with
// promptdepot.ErrVersionAlreadyExists.
func (s *Store) CreateVersion(ctx context.Context, templateID string, version promptdepot.SemanticVersion, req promptdepot.CreateVersionRequest) error {
	if err := promptdepot.ValidateID(templateID); err != nil {
		return err
	}
	if err := req.Check(templateID, version); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.versionDir(templateID, version)
	if _, err := os.Stat(target); err == nil {
		return &promptdepot.VersionError{TemplateID: templateID, Version: version, Err: promptdepot.ErrVersionAlreadyExists}
	}

	var md promptdepot.TemplateVersionMetadata
	if req.Metadata != nil {
		md = req.Metadata.Clone()
	} else {
		md = promptdepot.NewMetadata(templateID, version, s.now())
	}
	encoded, err := metadata.Marshal(md)
	if err != nil {
		return err
	}
	content, err := s.initialContent(ctx, templateID, req)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.templateDir(templateID), 0o750); err != nil {
		return fmt.Errorf("localstore: create template dir: %w", err)
	}
	staging := filepath.Join(s.templateDir(templateID), stagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0o750); err != nil {
		return fmt.Errorf("localstore: create staging dir: %w", err)
	}
	published := false
	defer func() {
		if !published {
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				s.logger.Warn().Err(rmErr).Str("dir", staging).Msg("staging cleanup failed")
			}
		}
	}()
	if err := writeFileSync(filepath.Join(staging, s.cfg.MetadataFileName), encoded); err != nil {
		return err
	}
	if err := writeFileSync(filepath.Join(staging, s.cfg.TemplateFileName), []byte(content)); err != nil {
		return err
	}
	if err := os.Rename(staging, target); err != nil {
		// ENOTEMPTY and EEXIST both match fs.ErrExist.
		if errors.Is(err, fs.ErrExist) {
			return &promptdepot.VersionError{TemplateID: templateID, Version: version, Err: promptdepot.ErrVersionAlreadyExists}
		}
		return fmt.Errorf("localstore: publish %s@%s: %w", templateID, version, err)
	}
	published = true
	syncDir(s.templateDir(templateID))
	s.logger.Info().
		Str("template_id", templateID).
		Str("version", version.String()).
		Str("strategy", req.Strategy.String()).
		Msg("version created")
	return nil
}

func (s *Store) initialContent(ctx context.Context, templateID string, req promptdepot.CreateVersionRequest) (string, error) {
	switch req.Strategy {
	case promptdepot.StrategyEmpty:
		return "", nil
	case promptdepot.StrategyWithContent:
		return *req.Content, nil
	}
	versions, err := s.ListTemplateVersions(ctx, templateID)
	if err != nil {
		if errors.Is(err, promptdepot.ErrTemplateNotFound) {
			s.logger.Warn().Str("template_id", templateID).Msg("no previous version; starting from empty content")
			return "", nil
		}
		return "", err
	}
	latest := versions[len(versions)-1].Version
	return s.GetTemplateVersionContent(ctx, templateID, latest)
}

func (s *Store) templateDir(templateID string) string {
	return filepath.Join(s.cfg.BasePath, templateID)
}

func (s *Store) versionDir(templateID string, version promptdepot.SemanticVersion) string {
	return filepath.Join(s.cfg.BasePath, templateID, version.String())
}
