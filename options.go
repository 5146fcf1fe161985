package prefect

import (
	"log/slog"

	"github.com/campuskit/prefect/directory"
	"github.com/campuskit/prefect/plugin"
	"github.com/campuskit/prefect/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithDirectory sets the platform directory collaborator.
func WithDirectory(d directory.Directory) Option { return func(e *Engine) { e.dir = d } }

// WithModuleCache sets the tenant-keyed module resolution cache.
func WithModuleCache(c ModuleCache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
