package module

import (
	"context"

	"github.com/campuskit/prefect/id"
)

// Store defines persistence operations for modules.
type Store interface {
	// CreateModule persists a new module. A (tenant, name) collision
	// returns ErrDuplicate.
	CreateModule(ctx context.Context, m *Module) error

	// GetModule retrieves a module by ID.
	GetModule(ctx context.Context, moduleID id.ModuleID) (*Module, error)

	// GetModuleByName retrieves a module by tenant and name.
	GetModuleByName(ctx context.Context, tenantID, name string) (*Module, error)

	// ResolveModuleNames resolves module names to modules in one batch.
	// Any name missing from the tenant fails the whole call with
	// ErrNotFound.
	ResolveModuleNames(ctx context.Context, tenantID string, names []string) (map[string]*Module, error)

	// ListModules returns modules matching the filter.
	ListModules(ctx context.Context, filter *ListFilter) ([]*Module, error)

	// CountModules returns the number of modules matching the filter.
	CountModules(ctx context.Context, filter *ListFilter) (int64, error)

	// DeleteModule removes a module. Returns ErrInUse while grants still
	// reference it.
	DeleteModule(ctx context.Context, moduleID id.ModuleID) error

	// DeleteModulesByTenant removes all modules for a tenant that no
	// grants reference.
	DeleteModulesByTenant(ctx context.Context, tenantID string) error
}
