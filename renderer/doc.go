// Package renderer provides promptdepot.RendererFactory implementations.
//
// GoTemplate compiles text/template sources with the sprig function library
// plus truncate_chars and truncate_tokens. Placeholder performs plain {{name}}
// substitution. Both compile once at construction; the returned renderers are
// safe for concurrent use.
package renderer
