package promptdepot

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Template is a named, independently versioned prompt definition.
type Template struct {
	ID            string
	LatestVersion SemanticVersion
}

// TemplateVersionMetadata describes one immutable template version.
// Tags have set semantics: NormalizeTags sorts and de-duplicates them.
type TemplateVersionMetadata struct {
	TemplateID  string          `yaml:"template_id" validate:"template_id"`
	Version     SemanticVersion `yaml:"version"`
	CreatedAt   time.Time       `yaml:"created_at" validate:"required"`
	Description string          `yaml:"description,omitempty"`
	Author      string          `yaml:"author,omitempty"`
	Tags        []string        `yaml:"tags" validate:"dive,required"`
	Model       string          `yaml:"model,omitempty"`
	Changelog   []string        `yaml:"changelog"`
}

// NewMetadata returns metadata for templateID/version created at now with empty optional fields.
func NewMetadata(templateID string, version SemanticVersion, now time.Time) TemplateVersionMetadata {
	return TemplateVersionMetadata{
		TemplateID: templateID,
		Version:    version,
		CreatedAt:  now.UTC().Round(0),
		Tags:       []string{},
		Changelog:  []string{},
	}
}

// Clone returns a copy with cloned slices so callers cannot mutate cached metadata.
func (m TemplateVersionMetadata) Clone() TemplateVersionMetadata {
	m.Tags = slices.Clone(m.Tags)
	m.Changelog = slices.Clone(m.Changelog)
	return m
}

// NormalizeTags returns tags sorted and de-duplicated. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := slices.Clone(tags)
	if out == nil {
		return []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// TemplateVersion is an immutable snapshot of a template's metadata at one version.
// Its content is fetched separately via TemplateStore.GetTemplateVersionContent.
type TemplateVersion struct {
	TemplateID string
	Version    SemanticVersion
	Metadata   TemplateVersionMetadata
}

// CreationStrategy determines the initial content of a newly created version.
// The set of strategies is closed; stores reject values outside it.
type CreationStrategy int

// Creation strategies.
const (
	// StrategyFromPreviousVersion copies the content of the current latest version.
	// When the template has no version yet it behaves as StrategyEmpty.
	StrategyFromPreviousVersion CreationStrategy = iota
	// StrategyEmpty always starts with empty content, ignoring any supplied content.
	StrategyEmpty
	// StrategyWithContent uses exactly the supplied content, which must be present.
	StrategyWithContent
)

var strategyNames = [...]string{
	StrategyFromPreviousVersion: "from_previous_version",
	StrategyEmpty:               "empty",
	StrategyWithContent:         "with_content",
}

// String returns the strategy name (from_previous_version, empty, with_content).
func (s CreationStrategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("CreationStrategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Valid reports whether s is one of the defined strategies.
func (s CreationStrategy) Valid() bool {
	return s >= StrategyFromPreviousVersion && s <= StrategyWithContent
}

// ParseCreationStrategy resolves a strategy by name.
func ParseCreationStrategy(name string) (CreationStrategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return CreationStrategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown creation strategy %q", ErrInvalidArgument, name)
}

// CreateVersionRequest carries the optional inputs of TemplateStore.CreateVersion.
// The zero value creates a version from the previous version with synthesized metadata.
type CreateVersionRequest struct {
	Metadata *TemplateVersionMetadata
	Strategy CreationStrategy
	Content  *string
}

// Check validates the request for templateID/version: the strategy must be defined,
// StrategyWithContent requires Content, and supplied metadata must name the same
// template and version.
func (r CreateVersionRequest) Check(templateID string, version SemanticVersion) error {
	if !r.Strategy.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, r.Strategy)
	}
	if r.Strategy == StrategyWithContent && r.Content == nil {
		return fmt.Errorf("%w: content is required for strategy %s", ErrInvalidArgument, r.Strategy)
	}
	if r.Metadata == nil {
		return nil
	}
	if r.Metadata.TemplateID != templateID {
		return fmt.Errorf("%w: metadata template_id %q does not match %q", ErrInvalidMetadata, r.Metadata.TemplateID, templateID)
	}
	if r.Metadata.Version != version {
		return fmt.Errorf("%w: metadata version %s does not match %s", ErrInvalidMetadata, r.Metadata.Version, version)
	}
	return nil
}

// TemplateStore persists versioned templates.
// Implementations must make version creation all-or-nothing and exclusive:
// of two concurrent creators of the same (id, version) at most one succeeds,
// the other fails with ErrVersionAlreadyExists.
type TemplateStore interface {
	// ListTemplates returns every template with at least one readable version, ordered by id.
	ListTemplates(ctx context.Context) ([]Template, error)
	// GetTemplate returns the template and its latest version, or ErrTemplateNotFound.
	GetTemplate(ctx context.Context, templateID string) (Template, error)
	// CreateTemplate creates the template with its initial version and empty content.
	// Fails with ErrTemplateAlreadyExists (which also matches ErrVersionAlreadyExists)
	// when the template already has a version.
	CreateTemplate(ctx context.Context, templateID string) error
	// ListTemplateVersions returns all readable versions ordered ascending, or ErrTemplateNotFound.
	ListTemplateVersions(ctx context.Context, templateID string) ([]TemplateVersion, error)
	// GetTemplateVersion returns one version, or ErrTemplateNotFound when it is absent
	// or its metadata is invalid.
	GetTemplateVersion(ctx context.Context, templateID string, version SemanticVersion) (TemplateVersion, error)
	// GetTemplateVersionContent returns the template source text of one version.
	GetTemplateVersionContent(ctx context.Context, templateID string, version SemanticVersion) (string, error)
	// CreateVersion creates a new version; content is determined by req.Strategy.
	CreateVersion(ctx context.Context, templateID string, version SemanticVersion, req CreateVersionRequest) error
}
