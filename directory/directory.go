// Package directory defines the collaborator interfaces Prefect uses to
// look at the surrounding platform: subject records and target existence.
// The engine never reads those entities' other fields.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a user, role, or target does not exist in
// the tenant.
var ErrNotFound = errors.New("directory: not found")

// User is the slice of a platform user the engine needs.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Active   bool   `json:"active"`
}

// Role is the slice of a platform role the engine needs.
type Role struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// Directory resolves subjects and targets against the platform's entity
// stores. Implementations are tenant-scoped: lookups outside the given
// tenant return ErrNotFound.
type Directory interface {
	// UserByID retrieves a user within the tenant.
	UserByID(ctx context.Context, tenantID, userID string) (*User, error)

	// RoleByID retrieves a role within the tenant.
	RoleByID(ctx context.Context, tenantID, roleID string) (*Role, error)

	// Exists reports whether an entity of targetType with the given ID
	// exists in the tenant.
	Exists(ctx context.Context, tenantID, targetType, targetID string) (bool, error)
}
