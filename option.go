package promptdepot

import "github.com/rs/zerolog"

// ManagerOption configures a Manager (functional options pattern).
type ManagerOption func(*Manager)

// WithDefaultConfig sets the renderer configuration every construction starts from.
// The map is copied; later changes by the caller do not affect the Manager.
func WithDefaultConfig(cfg RendererConfig) ManagerOption {
	return func(m *Manager) {
		m.defaultConfig = cfg.Clone()
	}
}

// WithLogger sets the logger for cache diagnostics. Default is a no-op logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}
