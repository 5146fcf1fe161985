package extension

import (
	"log/slog"

	"github.com/campuskit/prefect"
	"github.com/campuskit/prefect/directory"
	"github.com/campuskit/prefect/plugin"
	"github.com/campuskit/prefect/store"
)

// ExtOption configures the Prefect Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.prefectOpts = append(e.prefectOpts, prefect.WithStore(s))
	}
}

// WithDirectory sets the tenant entity directory.
func WithDirectory(d directory.Directory) ExtOption {
	return func(e *Extension) {
		e.prefectOpts = append(e.prefectOpts, prefect.WithDirectory(d))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...prefect.Option) ExtOption {
	return func(e *Extension) {
		e.prefectOpts = append(e.prefectOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
