package embedstore

import (
	"context"
	"embed"
	"testing"
	"testing/fstest"

	"github.com/skosovsky/promptdepot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

//go:embed testdata/prompts
var promptsFS embed.FS

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func v(s string) promptdepot.SemanticVersion { return promptdepot.MustParseVersion(s) }

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	return s
}

func TestEmbedStore_ListTemplates(t *testing.T) {
	t.Parallel()
	list, err := newStore(t).ListTemplates(context.Background())
	require.NoError(t, err)
	// broken has no valid version and is skipped.
	assert.Equal(t, []promptdepot.Template{
		{ID: "greeting", LatestVersion: v("1.10.0")},
		{ID: "summary", LatestVersion: v("0.1.0")},
	}, list)
}

func TestEmbedStore_ListTemplateVersions(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	versions, err := s.ListTemplateVersions(context.Background(), "greeting")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, v("1.0.0"), versions[0].Version)
	assert.Equal(t, v("1.2.0"), versions[1].Version)
	assert.Equal(t, v("1.10.0"), versions[2].Version)
	assert.Equal(t, "Friendlier greeting", versions[1].Metadata.Description)
	assert.Equal(t, "ada", versions[2].Metadata.Author)

	_, err = s.ListTemplateVersions(context.Background(), "broken")
	require.ErrorIs(t, err, promptdepot.ErrTemplateNotFound)
}

func TestEmbedStore_GetTemplateVersion(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	tv, err := s.GetTemplateVersion(ctx, "greeting", v("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, tv.Metadata.Tags)
	assert.Equal(t, []string{"Initial version"}, tv.Metadata.Changelog)

	tv.Metadata.Tags[0] = "mutated"
	again, err := s.GetTemplateVersion(ctx, "greeting", v("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, again.Metadata.Tags)

	_, err = s.GetTemplateVersion(ctx, "greeting", v("9.0.0"))
	require.ErrorIs(t, err, promptdepot.ErrTemplateNotFound)
	_, err = s.GetTemplateVersion(ctx, "nope", v("1.0.0"))
	require.ErrorIs(t, err, promptdepot.ErrTemplateNotFound)
}

func TestEmbedStore_GetTemplateVersionContent(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	content, err := s.GetTemplateVersionContent(context.Background(), "greeting", v("1.2.0"))
	require.NoError(t, err)
	assert.Equal(t, "Hi there, {{ .name }}!", content)
}

func TestEmbedStore_ReadOnly(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	require.ErrorIs(t, s.CreateTemplate(ctx, "x"), promptdepot.ErrReadOnlyStore)
	require.ErrorIs(t, s.CreateVersion(ctx, "greeting", v("2.0.0"), promptdepot.CreateVersionRequest{}), promptdepot.ErrReadOnlyStore)
}

func TestEmbedStore_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newStore(t).GetTemplate(ctx, "greeting")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmbedStore_CustomFileNames(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"p/a/1.0.0/meta.yaml":   {Data: []byte("template_id: a\nversion: 1.0.0\ncreated_at: 2024-01-01T00:00:00Z\n")},
		"p/a/1.0.0/prompt.tmpl": {Data: []byte("body")},
		"p/b/1.0.0/meta.yaml":   {Data: []byte("template_id: other\nversion: 1.0.0\ncreated_at: 2024-01-01T00:00:00Z\n")},
		"p/b/1.0.0/prompt.tmpl": {Data: []byte("mismatched id")},
	}
	s, err := New(fsys, "p", WithFileNames("prompt.tmpl", "meta.yaml"))
	require.NoError(t, err)
	content, err := s.GetTemplateVersionContent(context.Background(), "a", v("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "body", content)

	_, err = s.GetTemplate(context.Background(), "b")
	require.ErrorIs(t, err, promptdepot.ErrTemplateNotFound)
}

func TestEmbedStore_MissingRoot(t *testing.T) {
	t.Parallel()
	_, err := New(fstest.MapFS{}, "missing")
	require.Error(t, err)
}
