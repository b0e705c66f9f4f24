package promptdepot

import (
	"context"
	"maps"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// cacheKey identifies one constructed renderer. Compared structurally.
type cacheKey struct {
	templateID string
	version    SemanticVersion
}

func (k cacheKey) String() string {
	// Versions never contain '@', so the last '@' separates the parts.
	return k.templateID + "@" + k.version.String()
}

// Manager composes a TemplateStore with a RendererFactory and caches renderers
// per (template id, version). It never writes to the store.
//
// Manager is safe for concurrent use. Concurrent misses on the same key are
// collapsed, so a renderer is constructed at most once per key for the lifetime
// of the Manager unless the entry is dropped with Invalidate or Reset.
type Manager struct {
	store         TemplateStore
	factory       RendererFactory
	defaultConfig RendererConfig
	logger        zerolog.Logger
	mu            sync.RWMutex
	cache         map[cacheKey]Renderer
	sf            singleflight.Group
}

// NewManager creates a Manager over store that builds renderers with factory.
// Panics if store or factory is nil.
func NewManager(store TemplateStore, factory RendererFactory, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("promptdepot: TemplateStore must not be nil")
	}
	if factory == nil {
		panic("promptdepot: RendererFactory must not be nil")
	}
	m := &Manager{
		store:         store,
		factory:       factory,
		defaultConfig: RendererConfig{},
		logger:        zerolog.Nop(),
		cache:         make(map[cacheKey]Renderer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetPrompt renders templateID at version with vars.
// version is a SemanticVersion or a version string; malformed strings fail with ErrInvalidVersion.
// Store and renderer errors are returned unmodified.
func (m *Manager) GetPrompt(ctx context.Context, templateID string, version any, vars map[string]any) (string, error) {
	v, err := NormalizeVersion(version)
	if err != nil {
		return "", err
	}
	r, err := m.renderer(ctx, cacheKey{templateID: templateID, version: v})
	if err != nil {
		return "", err
	}
	return r.Render(ctx, maps.Clone(vars))
}

// GetPromptStruct renders using a payload struct whose fields carry `prompt:"name"` tags.
func (m *Manager) GetPromptStruct(ctx context.Context, templateID string, version any, payload any) (string, error) {
	vars, err := VarsFromStruct(payload)
	if err != nil {
		return "", err
	}
	return m.GetPrompt(ctx, templateID, version, vars)
}

// detachCancel returns a context that ignores parent's cancellation but keeps its deadline.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

func (m *Manager) renderer(ctx context.Context, key cacheKey) (Renderer, error) {
	m.mu.RLock()
	r, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}
	v, err, _ := m.sf.Do(key.String(), func() (any, error) {
		m.mu.RLock()
		r, ok := m.cache[key]
		m.mu.RUnlock()
		if ok {
			return r, nil
		}
		// Shared by every caller waiting on this key; one caller's cancellation must not fail the rest.
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		content, err := m.store.GetTemplateVersionContent(fetchCtx, key.templateID, key.version)
		if err != nil {
			return nil, err
		}
		r, err = m.factory(content, m.defaultConfig.Clone())
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[key] = r
		m.mu.Unlock()
		m.logger.Debug().
			Str("template_id", key.templateID).
			Str("version", key.version.String()).
			Msg("renderer constructed")
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Renderer), nil
}

// Invalidate drops the cached renderer for templateID/version, if any.
func (m *Manager) Invalidate(templateID string, version SemanticVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, cacheKey{templateID: templateID, version: version})
}

// Reset drops every cached renderer.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[cacheKey]Renderer)
}

// CachedRenderers returns the number of cached renderers.
func (m *Manager) CachedRenderers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
