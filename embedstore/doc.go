// Package embedstore provides a read-only promptdepot.TemplateStore over an fs.FS
// (typically embed.FS) laid out like localstore: <root>/<template_id>/<version>/.
// Every version is loaded at construction; lookups are map reads and need no locking.
// Create operations fail with promptdepot.ErrReadOnlyStore.
package embedstore
