package decisionlog

import (
	"context"
	"time"

	"github.com/campuskit/prefect/id"
)

// Store defines persistence operations for decision audit logs.
type Store interface {
	// CreateDecision persists a new decision log entry.
	CreateDecision(ctx context.Context, e *Entry) error

	// GetDecision retrieves a decision log entry by ID.
	GetDecision(ctx context.Context, logID id.DecisionLogID) (*Entry, error)

	// ListDecisions returns entries matching the filter.
	ListDecisions(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountDecisions returns the number of entries matching the filter.
	CountDecisions(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeDecisions removes entries older than the given time.
	PurgeDecisions(ctx context.Context, before time.Time) (int64, error)

	// DeleteDecisionsByTenant removes all entries for a tenant.
	DeleteDecisionsByTenant(ctx context.Context, tenantID string) error
}
