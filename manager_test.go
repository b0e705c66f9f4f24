package promptdepot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore serves fixed contents and counts content reads.
type memStore struct {
	contents map[string]string // "id@version" -> content
	reads    atomic.Int32
	err      error
	delay    time.Duration
}

var _ TemplateStore = (*memStore)(nil)

func (s *memStore) ListTemplates(context.Context) ([]Template, error) { return nil, nil }
func (s *memStore) GetTemplate(context.Context, string) (Template, error) {
	return Template{}, ErrTemplateNotFound
}
func (s *memStore) CreateTemplate(context.Context, string) error { return ErrReadOnlyStore }
func (s *memStore) ListTemplateVersions(context.Context, string) ([]TemplateVersion, error) {
	return nil, ErrTemplateNotFound
}
func (s *memStore) GetTemplateVersion(context.Context, string, SemanticVersion) (TemplateVersion, error) {
	return TemplateVersion{}, ErrTemplateNotFound
}
func (s *memStore) CreateVersion(context.Context, string, SemanticVersion, CreateVersionRequest) error {
	return ErrReadOnlyStore
}

func (s *memStore) GetTemplateVersionContent(_ context.Context, id string, v SemanticVersion) (string, error) {
	s.reads.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	c, ok := s.contents[id+"@"+v.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s@%s", ErrTemplateNotFound, id, v)
	}
	return c, nil
}

// replaceRenderer substitutes {name} with vars["name"] and records the config it was built with.
type replaceRenderer struct {
	source string
	cfg    RendererConfig
}

func (r *replaceRenderer) Render(_ context.Context, vars map[string]any) (string, error) {
	out := r.source
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", fmt.Sprint(v))
	}
	if prefix, ok := r.cfg["prefix"].(string); ok {
		out = prefix + out
	}
	return out, nil
}

type countingFactory struct {
	calls atomic.Int32
	err   error
}

func (f *countingFactory) build(source string, cfg RendererConfig) (Renderer, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	cfg["touched_by_factory"] = true
	return &replaceRenderer{source: source, cfg: cfg}, nil
}

func newTestStore() *memStore {
	return &memStore{contents: map[string]string{
		"greet@1.0.0": "Hello, {name}!",
		"greet@1.1.0": "Hi, {name}!",
		"bye@1.0.0":   "Bye, {name}.",
	}}
}

func TestManager_GetPrompt(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	f := &countingFactory{}
	m := NewManager(store, f.build)
	ctx := context.Background()

	got, err := m.GetPrompt(ctx, "greet", "1.0.0", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", got)

	got, err = m.GetPrompt(ctx, "greet", MustParseVersion("1.0.0"), map[string]any{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Bo!", got)

	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int32(1), store.reads.Load())
	assert.Equal(t, 1, m.CachedRenderers())

	got, err = m.GetPrompt(ctx, "greet", "1.1.0", map[string]any{"name": "Cy"})
	require.NoError(t, err)
	assert.Equal(t, "Hi, Cy!", got)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, 2, m.CachedRenderers())
}

func TestManager_InvalidVersion(t *testing.T) {
	t.Parallel()
	f := &countingFactory{}
	m := NewManager(newTestStore(), f.build)
	_, err := m.GetPrompt(context.Background(), "greet", "1.0", nil)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = m.GetPrompt(context.Background(), "greet", 1, nil)
	require.ErrorIs(t, err, ErrInvalidVersion)
	assert.Zero(t, f.calls.Load())
}

func TestManager_ErrorsPropagateUnmodified(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storeErr := errors.New("disk on fire")
	store := newTestStore()
	store.err = storeErr
	m := NewManager(store, (&countingFactory{}).build)
	_, err := m.GetPrompt(ctx, "greet", "1.0.0", nil)
	assert.Same(t, storeErr, err)

	syntaxErr := fmt.Errorf("%w: unexpected EOF", ErrTemplateSyntax)
	f := &countingFactory{err: syntaxErr}
	m = NewManager(newTestStore(), f.build)
	_, err = m.GetPrompt(ctx, "greet", "1.0.0", nil)
	assert.Same(t, syntaxErr, err)
	assert.Zero(t, m.CachedRenderers(), "failed constructions are not cached")

	_, err = m.GetPrompt(ctx, "greet", "1.0.0", nil)
	require.ErrorIs(t, err, ErrTemplateSyntax)
	assert.Equal(t, int32(2), f.calls.Load())

	_, err = NewManager(newTestStore(), (&countingFactory{}).build).GetPrompt(ctx, "missing", "1.0.0", nil)
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestManager_DefaultConfigIsolation(t *testing.T) {
	t.Parallel()
	cfg := RendererConfig{"prefix": "> "}
	f := &countingFactory{}
	m := NewManager(newTestStore(), f.build, WithDefaultConfig(cfg))
	cfg["prefix"] = "changed "

	ctx := context.Background()
	got, err := m.GetPrompt(ctx, "greet", "1.0.0", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "> Hello, Ada!", got)

	got, err = m.GetPrompt(ctx, "bye", "1.0.0", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "> Bye, Ada.", got)

	// The factory mutated its copies; neither the caller's map nor the default changed.
	_, touched := cfg["touched_by_factory"]
	assert.False(t, touched)
	_, touched = m.defaultConfig["touched_by_factory"]
	assert.False(t, touched)
}

func TestManager_VarsNotRetained(t *testing.T) {
	t.Parallel()
	var seen map[string]any
	factory := func(string, RendererConfig) (Renderer, error) {
		return rendererFunc(func(_ context.Context, vars map[string]any) (string, error) {
			seen = vars
			vars["injected"] = 1
			return "", nil
		}), nil
	}
	m := NewManager(newTestStore(), factory)
	vars := map[string]any{"name": "Ada"}
	_, err := m.GetPrompt(context.Background(), "greet", "1.0.0", vars)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada"}, vars)
	assert.Contains(t, seen, "injected")
}

type rendererFunc func(context.Context, map[string]any) (string, error)

func (f rendererFunc) Render(ctx context.Context, vars map[string]any) (string, error) {
	return f(ctx, vars)
}

func TestManager_ConcurrentMissConstructsOnce(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	store.delay = 20 * time.Millisecond
	f := &countingFactory{}
	m := NewManager(store, f.build)

	const n = 32
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.GetPrompt(context.Background(), "greet", "1.0.0", map[string]any{"name": i})
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("Hello, %d!", i), results[i])
	}
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int32(1), store.reads.Load())
}

func TestManager_CanceledWaiterDoesNotFailOthers(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	store.delay = 30 * time.Millisecond
	m := NewManager(store, (&countingFactory{}).build)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.GetPrompt(ctx, "greet", "1.0.0", nil)
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	got, err := m.GetPrompt(context.Background(), "greet", "1.0.0", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", got)
	<-done
}

func TestManager_InvalidateAndReset(t *testing.T) {
	t.Parallel()
	f := &countingFactory{}
	m := NewManager(newTestStore(), f.build)
	ctx := context.Background()

	_, err := m.GetPrompt(ctx, "greet", "1.0.0", nil)
	require.NoError(t, err)
	_, err = m.GetPrompt(ctx, "bye", "1.0.0", nil)
	require.NoError(t, err)
	require.Equal(t, 2, m.CachedRenderers())

	m.Invalidate("greet", MustParseVersion("1.0.0"))
	assert.Equal(t, 1, m.CachedRenderers())
	_, err = m.GetPrompt(ctx, "greet", "1.0.0", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.calls.Load())

	m.Reset()
	assert.Zero(t, m.CachedRenderers())
}

func TestManager_GetPromptStruct(t *testing.T) {
	t.Parallel()
	type payload struct {
		Name    string `prompt:"name"`
		Ignored string
	}
	m := NewManager(newTestStore(), (&countingFactory{}).build)
	got, err := m.GetPromptStruct(context.Background(), "greet", "1.0.0", &payload{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", got)

	_, err = m.GetPromptStruct(context.Background(), "greet", "1.0.0", "not a struct")
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNewManager_PanicsOnNil(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewManager(nil, (&countingFactory{}).build) })
	assert.Panics(t, func() { NewManager(newTestStore(), nil) })
}

func TestDetachCancel(t *testing.T) {
	t.Parallel()
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := detachCancel(parent)
	defer stop()
	cancel()
	require.NoError(t, ctx.Err())
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	dl := time.Now().Add(time.Hour)
	parent, cancel = context.WithDeadline(context.Background(), dl)
	defer cancel()
	ctx, stop = detachCancel(parent)
	defer stop()
	got, ok := ctx.Deadline()
	require.True(t, ok)
	assert.True(t, got.Equal(dl))
}
