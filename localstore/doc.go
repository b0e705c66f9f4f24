// Package localstore provides a filesystem-backed promptdepot.TemplateStore.
//
// Templates live under a base directory as <base>/<template_id>/<version>/,
// each version directory holding a metadata file (metadata.yml) and the
// template source (template.md). Versions are created by writing into a hidden
// staging directory next to the target and renaming it into place, so readers
// never observe a partially written version and concurrent creators of the same
// version cannot both succeed. Parsed metadata is cached per version; versions
// are immutable once published.
package localstore
