// Package module defines the Module entity, a named capability domain
// grants are partitioned by, and its store interface.
package module

import (
	"errors"
	"time"

	"github.com/campuskit/prefect/id"
)

var (
	// ErrNotFound is returned when a module cannot be found.
	ErrNotFound = errors.New("module: not found")

	// ErrDuplicate is returned when a module name already exists in the
	// tenant.
	ErrDuplicate = errors.New("module: name already registered")

	// ErrInUse is returned when deleting a module that grants still
	// reference.
	ErrInUse = errors.New("module: referenced by grants")
)

// Module is a named capability domain (e.g. "assignment", "attendance"),
// unique per tenant. Created administratively and rarely mutated.
type Module struct {
	ID        id.ModuleID `json:"id" db:"id"`
	TenantID  string      `json:"tenant_id" db:"tenant_id"`
	Name      string      `json:"name" db:"name"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing modules.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
