// Package sqlite provides a SQLite implementation of the Prefect
// composite store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
	"github.com/campuskit/prefect/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite Prefect store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("prefect: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("prefect: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SQLite surfaces constraint failures as message text, not typed errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// ──────────────────────────────────────────────────
// Module operations
// ──────────────────────────────────────────────────

func (s *Store) CreateModule(ctx context.Context, m *module.Module) error {
	_, err := s.sdb.NewInsert(moduleToModel(m)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("module %q: %w", m.Name, module.ErrDuplicate)
		}
		return fmt.Errorf("prefect: create module: %w", err)
	}
	return nil
}

func (s *Store) GetModule(ctx context.Context, moduleID id.ModuleID) (*module.Module, error) {
	m := new(moduleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", moduleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("module %s: %w", moduleID, module.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get module: %w", err)
	}
	return moduleFromModel(m), nil
}

func (s *Store) GetModuleByName(ctx context.Context, tenantID, name string) (*module.Module, error) {
	m := new(moduleModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("module %q: %w", name, module.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get module by name: %w", err)
	}
	return moduleFromModel(m), nil
}

func (s *Store) ResolveModuleNames(ctx context.Context, tenantID string, names []string) (map[string]*module.Module, error) {
	if len(names) == 0 {
		return map[string]*module.Module{}, nil
	}
	var models []moduleModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("name IN ("+placeholders(len(names))+")", stringArgs(names)...).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("prefect: resolve module names: %w", err)
	}
	result := make(map[string]*module.Module, len(models))
	for i := range models {
		m := moduleFromModel(&models[i])
		result[m.Name] = m
	}
	for _, name := range names {
		if _, ok := result[name]; !ok {
			return nil, fmt.Errorf("module %q: %w", name, module.ErrNotFound)
		}
	}
	return result, nil
}

func (s *Store) ListModules(ctx context.Context, filter *module.ListFilter) ([]*module.Module, error) {
	var models []moduleModel
	q := s.sdb.NewSelect(&models).OrderExpr("name ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("prefect: list modules: %w", err)
	}
	result := make([]*module.Module, len(models))
	for i := range models {
		result[i] = moduleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountModules(ctx context.Context, filter *module.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*moduleModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: count modules: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteModule(ctx context.Context, moduleID id.ModuleID) error {
	_, err := s.sdb.NewDelete((*moduleModel)(nil)).
		Where("id = ?", moduleID.String()).Exec(ctx)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("module %s: %w", moduleID, module.ErrInUse)
		}
		return fmt.Errorf("prefect: delete module: %w", err)
	}
	return nil
}

func (s *Store) DeleteModulesByTenant(ctx context.Context, tenantID string) error {
	// The FK restricts modules still referenced by grants, so delete only
	// the unreferenced ones.
	_, err := s.sdb.NewDelete((*moduleModel)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("id NOT IN (SELECT DISTINCT module_id FROM prefect_grants WHERE tenant_id = ?)", tenantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete modules by tenant: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

func (s *Store) CreateGrant(ctx context.Context, g *grant.Grant) error {
	_, err := s.sdb.NewInsert(grantToModel(g)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("grant %s: %w", g.Title, grant.ErrDuplicate)
		}
		return fmt.Errorf("prefect: create grant: %w", err)
	}
	return nil
}

func (s *Store) GetGrant(ctx context.Context, grantID id.GrantID) (*grant.Grant, error) {
	m := new(grantModel)
	err := s.sdb.NewSelect(m).Where("id = ?", grantID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grant %s: %w", grantID, grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get grant: %w", err)
	}
	return grantFromModel(m), nil
}

func (s *Store) FindGrant(ctx context.Context, key *grant.Key) (*grant.Grant, error) {
	m := new(grantModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", key.TenantID).
		Where("user_id = ?", key.UserID).
		Where("role_id = ?", key.RoleID).
		Where("module_id = ?", key.ModuleID.String()).
		Where("target_type = ?", key.TargetType).
		Where("target_id = ?", key.TargetID).
		Where("action = ?", key.Action).
		Where("scope = ?", string(key.Scope)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grant key: %w", grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: find grant: %w", err)
	}
	return grantFromModel(m), nil
}

func (s *Store) UpdateGrant(ctx context.Context, g *grant.Grant) error {
	_, err := s.sdb.NewUpdate((*grantModel)(nil)).
		Set("setter_id = ?", g.SetterID).
		Set("title = ?", g.Title).
		Set("updated_at = ?", g.UpdatedAt).
		Where("id = ?", g.ID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: update grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, grantID id.GrantID) error {
	_, err := s.sdb.NewDelete((*grantModel)(nil)).
		Where("id = ?", grantID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete grant: %w", err)
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	var models []grantModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.RoleID != "" {
			q = q.Where("role_id = ?", filter.RoleID)
		}
		if !filter.ModuleID.IsNil() {
			q = q.Where("module_id = ?", filter.ModuleID.String())
		}
		if filter.TargetType != "" {
			q = q.Where("target_type = ?", filter.TargetType)
		}
		if filter.TargetID != "" {
			q = q.Where("target_id = ?", filter.TargetID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Scope != "" {
			q = q.Where("scope = ?", string(filter.Scope))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("prefect: list grants: %w", err)
	}
	result := make([]*grant.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountGrants(ctx context.Context, filter *grant.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*grantModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.RoleID != "" {
			q = q.Where("role_id = ?", filter.RoleID)
		}
		if !filter.ModuleID.IsNil() {
			q = q.Where("module_id = ?", filter.ModuleID.String())
		}
		if filter.TargetType != "" {
			q = q.Where("target_type = ?", filter.TargetType)
		}
		if filter.TargetID != "" {
			q = q.Where("target_id = ?", filter.TargetID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Scope != "" {
			q = q.Where("scope = ?", string(filter.Scope))
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: count grants: %w", err)
	}
	return count, nil
}

func (s *Store) MatchGrant(ctx context.Context, q *grant.MatchQuery) (*grant.Grant, error) {
	if q.UserID == "" && q.RoleID == "" {
		return nil, fmt.Errorf("no subject: %w", grant.ErrNotFound)
	}
	if len(q.Actions) == 0 {
		return nil, fmt.Errorf("no actions: %w", grant.ErrNotFound)
	}

	m := new(grantModel)
	sel := s.sdb.NewSelect(m).
		Where("tenant_id = ?", q.TenantID).
		Where("module_id = ?", q.ModuleID.String()).
		Where("target_type = ?", q.TargetType)

	// Target asymmetry: a concrete target also accepts unscoped rows, an
	// empty target accepts only unscoped rows.
	if q.TargetID != "" {
		sel = sel.Where("(target_id = ? OR target_id = '')", q.TargetID)
	} else {
		sel = sel.Where("target_id = ''")
	}

	sel = sel.Where("action IN ("+placeholders(len(q.Actions))+")", stringArgs(q.Actions)...)

	switch {
	case q.UserID != "" && q.RoleID != "":
		sel = sel.Where("(user_id = ? OR role_id = ?)", q.UserID, q.RoleID)
	case q.UserID != "":
		sel = sel.Where("user_id = ?", q.UserID)
	default:
		sel = sel.Where("role_id = ?", q.RoleID)
	}

	err := sel.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no grant matches: %w", grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: match grant: %w", err)
	}
	return grantFromModel(m), nil
}

func (s *Store) ApplyGrantDiff(ctx context.Context, diff *grant.Diff) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("prefect: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if len(diff.Delete) > 0 {
		ids := make([]string, len(diff.Delete))
		for i, gid := range diff.Delete {
			ids[i] = gid.String()
		}
		_, err = tx.NewDelete((*grantModel)(nil)).
			Where("id IN ("+placeholders(len(ids))+")", stringArgs(ids)...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("prefect: diff delete: %w", err)
		}
	}

	if len(diff.Create) > 0 {
		models := make([]grantModel, len(diff.Create))
		for i, g := range diff.Create {
			models[i] = *grantToModel(g)
		}
		_, err = tx.NewInsert(&models).Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("prefect: diff create: %w", grant.ErrDuplicate)
			}
			return fmt.Errorf("prefect: diff create: %w", err)
		}
	}

	for _, g := range diff.Update {
		_, err = tx.NewUpdate((*grantModel)(nil)).
			Set("setter_id = ?", g.SetterID).
			Set("title = ?", g.Title).
			Set("updated_at = ?", g.UpdatedAt).
			Where("id = ?", g.ID.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("prefect: diff update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("prefect: commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrantsBySubject(ctx context.Context, tenantID, userID, roleID string) error {
	q := s.sdb.NewDelete((*grantModel)(nil)).Where("tenant_id = ?", tenantID)
	switch {
	case userID != "" && roleID != "":
		q = q.Where("(user_id = ? OR role_id = ?)", userID, roleID)
	case userID != "":
		q = q.Where("user_id = ?", userID)
	case roleID != "":
		q = q.Where("role_id = ?", roleID)
	default:
		return nil
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("prefect: delete grants by subject: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrantsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.sdb.NewDelete((*grantModel)(nil)).
		Where("tenant_id = ?", tenantID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete grants by tenant: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateDecision(ctx context.Context, e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.sdb.NewInsert(decisionToModel(e)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: create decision: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	m := new(decisionLogModel)
	err := s.sdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("decision %s: %w", logID, decisionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get decision: %w", err)
	}
	return decisionFromModel(m), nil
}

func (s *Store) ListDecisions(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Module != "" {
			q = q.Where("module = ?", filter.Module)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.TargetType != "" {
			q = q.Where("target_type = ?", filter.TargetType)
		}
		if filter.TargetID != "" {
			q = q.Where("target_id = ?", filter.TargetID)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("prefect: list decisions: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		result[i] = decisionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountDecisions(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*decisionLogModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Module != "" {
			q = q.Where("module = ?", filter.Module)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.TargetType != "" {
			q = q.Where("target_type = ?", filter.TargetType)
		}
		if filter.TargetID != "" {
			q = q.Where("target_id = ?", filter.TargetID)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: count decisions: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: purge decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prefect: purge decisions rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDecisionsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("tenant_id = ?", tenantID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete decisions by tenant: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
