// Package store defines the aggregate persistence interface. Each
// subsystem (module, grant, decisionlog) defines its own store interface;
// the composite Store composes them all.
// Backends: Postgres, SQLite, Mongo, and Memory.
package store

import (
	"context"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/module"
)

// Store is the aggregate persistence interface. A single backend
// implements all subsystem stores so the reconcile diff can run in one
// backend transaction.
type Store interface {
	module.Store
	grant.Store
	decisionlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
