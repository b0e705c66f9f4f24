package promptdepot

import (
	"errors"
	"fmt"
)

// Sentinel errors for store, manager and renderer operations.
// All use prefix "promptdepot:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrTemplateNotFound      = errors.New("promptdepot: template not found")
	ErrTemplateAlreadyExists = errors.New("promptdepot: template already exists")
	ErrVersionAlreadyExists  = errors.New("promptdepot: template version already exists")
	ErrInvalidMetadata       = errors.New("promptdepot: template metadata is invalid")
	ErrInvalidVersion        = errors.New("promptdepot: invalid semantic version")
	ErrInvalidName           = errors.New("promptdepot: invalid template id")
	ErrInvalidArgument       = errors.New("promptdepot: invalid argument")
	ErrReadOnlyStore         = errors.New("promptdepot: store is read-only")
	ErrTemplateSyntax        = errors.New("promptdepot: template syntax error")
	ErrTemplateRender        = errors.New("promptdepot: template rendering failed")
	ErrMissingVariable       = errors.New("promptdepot: required template variable not provided")
	ErrInvalidPayload        = errors.New("promptdepot: payload struct is invalid or missing prompt tags")
)

// VersionError wraps a sentinel error with the template id and version it concerns.
// Use errors.Is(err, ErrVersionAlreadyExists) and errors.As(err, &versionErr) to inspect.
type VersionError struct {
	TemplateID string
	Version    SemanticVersion
	Err        error
}

// Error implements error.
func (e *VersionError) Error() string {
	return fmt.Sprintf("promptdepot: template %q version %s: %v", e.TemplateID, e.Version, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *VersionError) Unwrap() error { return e.Err }

// VariableError wraps a sentinel error with variable context.
// Renderers return it when a strictly required variable is absent from the render context.
type VariableError struct {
	Variable string
	Err      error
}

// Error implements error.
func (e *VariableError) Error() string {
	return fmt.Sprintf("promptdepot: variable %q: %v", e.Variable, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *VariableError) Unwrap() error { return e.Err }

// Compile-time checks that the typed errors implement error.
var (
	_ error = (*VersionError)(nil)
	_ error = (*VariableError)(nil)
)
