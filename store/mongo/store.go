// Package mongo provides a MongoDB implementation of the Prefect
// composite store using grove ORM. Uniqueness is enforced by a compound
// index over the full grant tuple, created by Migrate.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
	"github.com/campuskit/prefect/store"
)

// Collection name constants.
const (
	colModules      = "prefect_modules"
	colGrants       = "prefect_grants"
	colDecisionLogs = "prefect_decision_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Prefect store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all prefect collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("prefect/mongo: migrate %s indexes: %w", col, err)
		}
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all prefect collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colModules: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colGrants: {
			{
				Keys: bson.D{
					{Key: "tenant_id", Value: 1},
					{Key: "user_id", Value: 1},
					{Key: "role_id", Value: 1},
					{Key: "module_id", Value: 1},
					{Key: "target_type", Value: 1},
					{Key: "target_id", Value: 1},
					{Key: "action", Value: 1},
					{Key: "scope", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role_id", Value: 1}}},
			{Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "module_id", Value: 1},
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
				{Key: "action", Value: 1},
			}},
		},
		colDecisionLogs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "actor_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Module operations
// ──────────────────────────────────────────────────

func (s *Store) CreateModule(ctx context.Context, m *module.Module) error {
	if _, err := s.mdb.NewInsert(moduleToModel(m)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("module %q: %w", m.Name, module.ErrDuplicate)
		}
		return fmt.Errorf("prefect: create module: %w", err)
	}
	return nil
}

func (s *Store) GetModule(ctx context.Context, moduleID id.ModuleID) (*module.Module, error) {
	var m moduleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": moduleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("module %s: %w", moduleID, module.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get module: %w", err)
	}
	return moduleFromModel(&m), nil
}

func (s *Store) GetModuleByName(ctx context.Context, tenantID, name string) (*module.Module, error) {
	var m moduleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("module %q: %w", name, module.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get module by name: %w", err)
	}
	return moduleFromModel(&m), nil
}

func (s *Store) ResolveModuleNames(ctx context.Context, tenantID string, names []string) (map[string]*module.Module, error) {
	if len(names) == 0 {
		return map[string]*module.Module{}, nil
	}
	var models []moduleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "name": bson.M{"$in": names}}).
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
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	count, err := s.mdb.NewFind((*moduleModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: count modules: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteModule(ctx context.Context, moduleID id.ModuleID) error {
	// Mongo has no foreign keys, so the in-use check is a count.
	count, err := s.mdb.NewFind((*grantModel)(nil)).
		Filter(bson.M{"module_id": moduleID.String()}).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete module: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("module %s: %w", moduleID, module.ErrInUse)
	}
	_, err = s.mdb.NewDelete((*moduleModel)(nil)).
		Filter(bson.M{"_id": moduleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete module: %w", err)
	}
	return nil
}

func (s *Store) DeleteModulesByTenant(ctx context.Context, tenantID string) error {
	// Collect the module ids still referenced by grants and keep those.
	var grants []grantModel
	err := s.mdb.NewFind(&grants).
		Filter(bson.M{"tenant_id": tenantID}).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete modules by tenant: %w", err)
	}
	referenced := make(map[string]bool, len(grants))
	ids := make([]string, 0, len(grants))
	for i := range grants {
		if !referenced[grants[i].ModuleID] {
			referenced[grants[i].ModuleID] = true
			ids = append(ids, grants[i].ModuleID)
		}
	}
	_, err = s.mdb.NewDelete((*moduleModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID, "_id": bson.M{"$nin": ids}}).
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
	if _, err := s.mdb.NewInsert(grantToModel(g)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("grant %s: %w", g.Title, grant.ErrDuplicate)
		}
		return fmt.Errorf("prefect: create grant: %w", err)
	}
	return nil
}

func (s *Store) GetGrant(ctx context.Context, grantID id.GrantID) (*grant.Grant, error) {
	var m grantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": grantID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("grant %s: %w", grantID, grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get grant: %w", err)
	}
	return grantFromModel(&m), nil
}

func (s *Store) FindGrant(ctx context.Context, key *grant.Key) (*grant.Grant, error) {
	var m grantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"tenant_id":   key.TenantID,
			"user_id":     key.UserID,
			"role_id":     key.RoleID,
			"module_id":   key.ModuleID.String(),
			"target_type": key.TargetType,
			"target_id":   key.TargetID,
			"action":      key.Action,
			"scope":       string(key.Scope),
		}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("grant key: %w", grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: find grant: %w", err)
	}
	return grantFromModel(&m), nil
}

func (s *Store) UpdateGrant(ctx context.Context, g *grant.Grant) error {
	m := grantToModel(g)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: update grant: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("grant %s: %w", g.ID, grant.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, grantID id.GrantID) error {
	_, err := s.mdb.NewDelete((*grantModel)(nil)).
		Filter(bson.M{"_id": grantID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete grant: %w", err)
	}
	return nil
}

// grantListFilter builds the bson filter shared by ListGrants and CountGrants.
func grantListFilter(filter *grant.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.RoleID != "" {
		f["role_id"] = filter.RoleID
	}
	if !filter.ModuleID.IsNil() {
		f["module_id"] = filter.ModuleID.String()
	}
	if filter.TargetType != "" {
		f["target_type"] = filter.TargetType
	}
	if filter.TargetID != "" {
		f["target_id"] = filter.TargetID
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Scope != "" {
		f["scope"] = string(filter.Scope)
	}
	return f
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	var models []grantModel
	q := s.mdb.NewFind(&models).
		Filter(grantListFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*grantModel)(nil)).
		Filter(grantListFilter(filter)).
		Count(ctx)
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

	f := bson.M{
		"tenant_id":   q.TenantID,
		"module_id":   q.ModuleID.String(),
		"target_type": q.TargetType,
		"action":      bson.M{"$in": q.Actions},
	}

	// Target asymmetry: a concrete target also accepts unscoped rows, an
	// empty target accepts only unscoped rows.
	if q.TargetID != "" {
		f["target_id"] = bson.M{"$in": []string{q.TargetID, ""}}
	} else {
		f["target_id"] = ""
	}

	switch {
	case q.UserID != "" && q.RoleID != "":
		f["$or"] = []bson.M{{"user_id": q.UserID}, {"role_id": q.RoleID}}
	case q.UserID != "":
		f["user_id"] = q.UserID
	default:
		f["role_id"] = q.RoleID
	}

	var m grantModel
	err := s.mdb.NewFind(&m).Filter(f).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("no grant matches: %w", grant.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: match grant: %w", err)
	}
	return grantFromModel(&m), nil
}

func (s *Store) ApplyGrantDiff(ctx context.Context, diff *grant.Diff) error {
	// Standalone MongoDB has no multi-document transactions, so the diff
	// applies in order: deletes first so creates cannot collide with rows
	// being replaced, then creates, then updates.
	if len(diff.Delete) > 0 {
		ids := make([]string, len(diff.Delete))
		for i, gid := range diff.Delete {
			ids[i] = gid.String()
		}
		_, err := s.mdb.NewDelete((*grantModel)(nil)).
			Filter(bson.M{"_id": bson.M{"$in": ids}}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("prefect: diff delete: %w", err)
		}
	}

	for _, g := range diff.Create {
		if _, err := s.mdb.NewInsert(grantToModel(g)).Exec(ctx); err != nil {
			if mongod.IsDuplicateKeyError(err) {
				return fmt.Errorf("prefect: diff create: %w", grant.ErrDuplicate)
			}
			return fmt.Errorf("prefect: diff create: %w", err)
		}
	}

	for _, g := range diff.Update {
		m := grantToModel(g)
		if _, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
			return fmt.Errorf("prefect: diff update: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteGrantsBySubject(ctx context.Context, tenantID, userID, roleID string) error {
	f := bson.M{"tenant_id": tenantID}
	switch {
	case userID != "" && roleID != "":
		f["$or"] = []bson.M{{"user_id": userID}, {"role_id": roleID}}
	case userID != "":
		f["user_id"] = userID
	case roleID != "":
		f["role_id"] = roleID
	default:
		return nil
	}
	_, err := s.mdb.NewDelete((*grantModel)(nil)).Filter(f).Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete grants by subject: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrantsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.mdb.NewDelete((*grantModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID}).
		Exec(ctx)
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
	if _, err := s.mdb.NewInsert(decisionToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("prefect: create decision: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	var m decisionLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("decision %s: %w", logID, decisionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("prefect: get decision: %w", err)
	}
	return decisionFromModel(&m), nil
}

// decisionQueryFilter builds the bson filter shared by ListDecisions and
// CountDecisions.
func decisionQueryFilter(filter *decisionlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.ActorID != "" {
		f["actor_id"] = filter.ActorID
	}
	if filter.Module != "" {
		f["module"] = filter.Module
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.TargetType != "" {
		f["target_type"] = filter.TargetType
	}
	if filter.TargetID != "" {
		f["target_id"] = filter.TargetID
	}
	if filter.Allowed != nil {
		f["allowed"] = *filter.Allowed
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gte"] = *filter.After
	}
	if filter.Before != nil {
		created["$lte"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}

func (s *Store) ListDecisions(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.mdb.NewFind(&models).
		Filter(decisionQueryFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*decisionLogModel)(nil)).
		Filter(decisionQueryFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: count decisions: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("prefect: purge decisions: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteDecisionsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("prefect: delete decisions by tenant: %w", err)
	}
	return nil
}
