// Package promptdepot manages versioned prompt templates on durable storage and
// renders them through pluggable engines.
//
// A TemplateStore persists immutable versions of each template, ordered by
// SemanticVersion. A Manager composes one store with one RendererFactory and
// caches the constructed Renderer per (template id, version), so an expensive
// renderer is built at most once per distinct version.
package promptdepot
