// Package metadata reads, validates and writes template version metadata files (YAML).
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/skosovsky/promptdepot"
	"gopkg.in/yaml.v3"
)

// fileMetadata is the on-disk YAML shape. Required keys are pointers so that
// absence can be told apart from zero values.
type fileMetadata struct {
	TemplateID  *string                      `yaml:"template_id"`
	Version     *promptdepot.SemanticVersion `yaml:"version"`
	CreatedAt   *string                      `yaml:"created_at"`
	Description string                       `yaml:"description,omitempty"`
	Author      string                       `yaml:"author,omitempty"`
	Tags        []string                     `yaml:"tags"`
	Model       string                       `yaml:"model,omitempty"`
	Changelog   []string                     `yaml:"changelog"`
}

// timeLayouts are accepted for created_at, most specific first.
// Timestamps without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("template_id", func(fl validator.FieldLevel) bool {
		return promptdepot.ValidateID(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the structural invariants of m: a valid template id, a set
// created_at and no empty tag strings. Failures wrap promptdepot.ErrInvalidMetadata.
func Validate(m promptdepot.TemplateVersionMetadata) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %w", promptdepot.ErrInvalidMetadata, err)
	}
	return nil
}

// Parse decodes and validates a metadata document.
// Tags are normalized (sorted, de-duplicated); tags and changelog are never nil.
func Parse(data []byte) (promptdepot.TemplateVersionMetadata, error) {
	var f fileMetadata
	if err := yaml.Unmarshal(data, &f); err != nil {
		return promptdepot.TemplateVersionMetadata{}, fmt.Errorf("%w: %w", promptdepot.ErrInvalidMetadata, err)
	}
	return build(&f)
}

// ParseFile reads and parses a metadata file.
// A missing file wraps promptdepot.ErrTemplateNotFound.
func ParseFile(path string) (promptdepot.TemplateVersionMetadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built by the store from validated segments
	if err != nil {
		return promptdepot.TemplateVersionMetadata{}, readError(path, err)
	}
	return Parse(data)
}

// ParseFS reads and parses a metadata file from fsys (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (promptdepot.TemplateVersionMetadata, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return promptdepot.TemplateVersionMetadata{}, readError(name, err)
	}
	return Parse(data)
}

func readError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: metadata file %q: %w", promptdepot.ErrTemplateNotFound, name, err)
	}
	return fmt.Errorf("metadata: read %s: %w", name, err)
}

// Marshal validates m and encodes it as YAML. Output is deterministic:
// tags are written sorted and created_at in UTC, RFC 3339 with nanoseconds.
func Marshal(m promptdepot.TemplateVersionMetadata) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	createdAt := m.CreatedAt.UTC().Format(time.RFC3339Nano)
	f := fileMetadata{
		TemplateID:  &m.TemplateID,
		Version:     &m.Version,
		CreatedAt:   &createdAt,
		Description: m.Description,
		Author:      m.Author,
		Tags:        promptdepot.NormalizeTags(m.Tags),
		Model:       m.Model,
		Changelog:   m.Changelog,
	}
	if f.Changelog == nil {
		f.Changelog = []string{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("metadata: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("metadata: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes m to w.
func Write(w io.Writer, m promptdepot.TemplateVersionMetadata) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func build(f *fileMetadata) (promptdepot.TemplateVersionMetadata, error) {
	switch {
	case f.TemplateID == nil:
		return promptdepot.TemplateVersionMetadata{}, fmt.Errorf("%w: missing template_id", promptdepot.ErrInvalidMetadata)
	case f.Version == nil:
		return promptdepot.TemplateVersionMetadata{}, fmt.Errorf("%w: missing version", promptdepot.ErrInvalidMetadata)
	case f.CreatedAt == nil:
		return promptdepot.TemplateVersionMetadata{}, fmt.Errorf("%w: missing created_at", promptdepot.ErrInvalidMetadata)
	}
	createdAt, err := parseTime(*f.CreatedAt)
	if err != nil {
		return promptdepot.TemplateVersionMetadata{}, err
	}
	m := promptdepot.TemplateVersionMetadata{
		TemplateID:  *f.TemplateID,
		Version:     *f.Version,
		CreatedAt:   createdAt,
		Description: f.Description,
		Author:      f.Author,
		Tags:        promptdepot.NormalizeTags(f.Tags),
		Model:       f.Model,
		Changelog:   f.Changelog,
	}
	if m.Changelog == nil {
		m.Changelog = []string{}
	}
	if err := Validate(m); err != nil {
		return promptdepot.TemplateVersionMetadata{}, err
	}
	return m, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: created_at %q is not a timestamp", promptdepot.ErrInvalidMetadata, s)
}
