package grant

import (
	"context"

	"github.com/campuskit/prefect/id"
)

// Store defines persistence operations for grants.
type Store interface {
	// CreateGrant persists a new grant. A six-tuple collision returns
	// ErrDuplicate, whether detected up front or by the store's unique
	// index under a concurrent writer.
	CreateGrant(ctx context.Context, g *Grant) error

	// GetGrant retrieves a grant by ID.
	GetGrant(ctx context.Context, grantID id.GrantID) (*Grant, error)

	// FindGrant retrieves the grant matching the exact six-tuple key.
	FindGrant(ctx context.Context, key *Key) (*Grant, error)

	// UpdateGrant persists metadata changes (title, setter) to a grant.
	// Subject, module, target, action, and scope are immutable.
	UpdateGrant(ctx context.Context, g *Grant) error

	// DeleteGrant removes a grant by ID. Deletion is physical.
	DeleteGrant(ctx context.Context, grantID id.GrantID) error

	// ListGrants returns grants matching the filter.
	ListGrants(ctx context.Context, filter *ListFilter) ([]*Grant, error)

	// CountGrants returns the number of grants matching the filter.
	CountGrants(ctx context.Context, filter *ListFilter) (int64, error)

	// MatchGrant returns one grant satisfying the resolver predicate, or
	// ErrNotFound when no row matches.
	MatchGrant(ctx context.Context, q *MatchQuery) (*Grant, error)

	// ApplyGrantDiff applies a reconcile diff in one transaction:
	// deletions, then creations, then updates. Any failure rolls back the
	// whole diff.
	ApplyGrantDiff(ctx context.Context, diff *Diff) error

	// DeleteGrantsBySubject removes all grants addressed to a subject.
	DeleteGrantsBySubject(ctx context.Context, tenantID, userID, roleID string) error

	// DeleteGrantsByTenant removes all grants for a tenant.
	DeleteGrantsByTenant(ctx context.Context, tenantID string) error
}
