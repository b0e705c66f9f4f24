package promptdepot

import (
	"context"
	"maps"
)

// Renderer turns variables into text using one compiled template.
// A Renderer is constructed once per template version and reused for every render,
// so implementations keep their compiled form between calls.
type Renderer interface {
	Render(ctx context.Context, vars map[string]any) (string, error)
}

// RendererConfig is the engine-specific configuration passed to a RendererFactory.
type RendererConfig map[string]any

// Clone returns a top-level copy. Nested values (maps, slices, handles such as a
// shared token counter) are shared with c, not deep-copied.
func (c RendererConfig) Clone() RendererConfig {
	if c == nil {
		return RendererConfig{}
	}
	return maps.Clone(c)
}

// RendererFactory constructs a Renderer from template source text.
// Construction fails with an error wrapping ErrTemplateSyntax when the source does not parse.
// The factory owns cfg and may mutate it.
type RendererFactory func(source string, cfg RendererConfig) (Renderer, error)
