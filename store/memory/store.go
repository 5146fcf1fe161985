// Package memory provides an in-memory implementation of the Prefect
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campuskit/prefect/decisionlog"
	"github.com/campuskit/prefect/grant"
	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
	"github.com/campuskit/prefect/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store for all Prefect entities.
// Uniqueness of the grant six-tuple is enforced through a key index, the
// in-memory stand-in for the SQL unique index.
type Store struct {
	mu sync.RWMutex

	modules   map[string]*module.Module
	grants    map[string]*grant.Grant
	grantKeys map[grant.Key]string // six-tuple -> grant ID
	decisions map[string]*decisionlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		modules:   make(map[string]*module.Module),
		grants:    make(map[string]*grant.Grant),
		grantKeys: make(map[grant.Key]string),
		decisions: make(map[string]*decisionlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Module Store
// ──────────────────────────────────────────────────

func (s *Store) CreateModule(_ context.Context, m *module.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.modules {
		if existing.TenantID == m.TenantID && existing.Name == m.Name {
			return fmt.Errorf("module %q: %w", m.Name, module.ErrDuplicate)
		}
	}
	s.modules[m.ID.String()] = copyModule(m)
	return nil
}

func (s *Store) GetModule(_ context.Context, moduleID id.ModuleID) (*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[moduleID.String()]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, module.ErrNotFound)
	}
	return copyModule(m), nil
}

func (s *Store) GetModuleByName(_ context.Context, tenantID, name string) (*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.modules {
		if m.TenantID == tenantID && m.Name == name {
			return copyModule(m), nil
		}
	}
	return nil, fmt.Errorf("module %q: %w", name, module.ErrNotFound)
}

func (s *Store) ResolveModuleNames(ctx context.Context, tenantID string, names []string) (map[string]*module.Module, error) {
	result := make(map[string]*module.Module, len(names))
	for _, name := range names {
		m, err := s.GetModuleByName(ctx, tenantID, name)
		if err != nil {
			return nil, err
		}
		result[name] = m
	}
	return result, nil
}

func (s *Store) ListModules(_ context.Context, filter *module.ListFilter) ([]*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*module.Module, 0, len(s.modules))
	for _, m := range s.modules {
		if filter != nil {
			if filter.TenantID != "" && m.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyModule(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountModules(ctx context.Context, filter *module.ListFilter) (int64, error) {
	var f module.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListModules(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) DeleteModule(_ context.Context, moduleID id.ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := moduleID.String()
	if _, ok := s.modules[key]; !ok {
		return fmt.Errorf("module %s: %w", moduleID, module.ErrNotFound)
	}
	for _, g := range s.grants {
		if g.ModuleID.String() == key {
			return fmt.Errorf("module %s: %w", moduleID, module.ErrInUse)
		}
	}
	delete(s.modules, key)
	return nil
}

func (s *Store) DeleteModulesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	referenced := make(map[string]bool)
	for _, g := range s.grants {
		referenced[g.ModuleID.String()] = true
	}
	for k, m := range s.modules {
		if m.TenantID == tenantID && !referenced[k] {
			delete(s.modules, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Grant Store
// ──────────────────────────────────────────────────

func (s *Store) CreateGrant(_ context.Context, g *grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createGrantLocked(g)
}

// createGrantLocked inserts a grant. Must hold write lock.
func (s *Store) createGrantLocked(g *grant.Grant) error {
	key := g.Key()
	if _, ok := s.grantKeys[key]; ok {
		return fmt.Errorf("grant %s: %w", g.Title, grant.ErrDuplicate)
	}
	s.grants[g.ID.String()] = copyGrant(g)
	s.grantKeys[key] = g.ID.String()
	return nil
}

func (s *Store) GetGrant(_ context.Context, grantID id.GrantID) (*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantID.String()]
	if !ok {
		return nil, fmt.Errorf("grant %s: %w", grantID, grant.ErrNotFound)
	}
	return copyGrant(g), nil
}

func (s *Store) FindGrant(_ context.Context, key *grant.Key) (*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gid, ok := s.grantKeys[*key]
	if !ok {
		return nil, fmt.Errorf("grant key: %w", grant.ErrNotFound)
	}
	return copyGrant(s.grants[gid]), nil
}

func (s *Store) UpdateGrant(_ context.Context, g *grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateGrantLocked(g)
}

// updateGrantLocked replaces grant metadata. Must hold write lock.
func (s *Store) updateGrantLocked(g *grant.Grant) error {
	existing, ok := s.grants[g.ID.String()]
	if !ok {
		return fmt.Errorf("grant %s: %w", g.ID, grant.ErrNotFound)
	}
	updated := copyGrant(existing)
	updated.SetterID = g.SetterID
	updated.Title = g.Title
	updated.UpdatedAt = g.UpdatedAt
	s.grants[g.ID.String()] = updated
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, grantID id.GrantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteGrantLocked(grantID)
}

// deleteGrantLocked removes a grant and its key index entry. Must hold
// write lock.
func (s *Store) deleteGrantLocked(grantID id.GrantID) error {
	g, ok := s.grants[grantID.String()]
	if !ok {
		return fmt.Errorf("grant %s: %w", grantID, grant.ErrNotFound)
	}
	delete(s.grantKeys, g.Key())
	delete(s.grants, grantID.String())
	return nil
}

func (s *Store) ListGrants(_ context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*grant.Grant, 0, len(s.grants))
	for _, g := range s.grants {
		if filter != nil && !matchesFilter(g, filter) {
			continue
		}
		result = append(result, copyGrant(g))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountGrants(ctx context.Context, filter *grant.ListFilter) (int64, error) {
	var f grant.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListGrants(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) MatchGrant(_ context.Context, q *grant.MatchQuery) (*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grants {
		if matchesQuery(g, q) {
			return copyGrant(g), nil
		}
	}
	return nil, fmt.Errorf("no grant matches: %w", grant.ErrNotFound)
}

func (s *Store) ApplyGrantDiff(_ context.Context, diff *grant.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole diff first so a mid-diff failure cannot leave a
	// partial application behind.
	deleting := make(map[grant.Key]bool, len(diff.Delete))
	for _, gid := range diff.Delete {
		g, ok := s.grants[gid.String()]
		if !ok {
			return fmt.Errorf("grant %s: %w", gid, grant.ErrNotFound)
		}
		deleting[g.Key()] = true
	}
	for _, g := range diff.Create {
		key := g.Key()
		if _, ok := s.grantKeys[key]; ok && !deleting[key] {
			return fmt.Errorf("grant %s: %w", g.Title, grant.ErrDuplicate)
		}
	}
	for _, g := range diff.Update {
		if _, ok := s.grants[g.ID.String()]; !ok {
			return fmt.Errorf("grant %s: %w", g.ID, grant.ErrNotFound)
		}
	}

	for _, gid := range diff.Delete {
		if err := s.deleteGrantLocked(gid); err != nil {
			return err
		}
	}
	for _, g := range diff.Create {
		if err := s.createGrantLocked(g); err != nil {
			return err
		}
	}
	for _, g := range diff.Update {
		if err := s.updateGrantLocked(g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteGrantsBySubject(_ context.Context, tenantID, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.grants {
		if g.TenantID != tenantID {
			continue
		}
		if (userID != "" && g.UserID == userID) || (roleID != "" && g.RoleID == roleID) {
			delete(s.grantKeys, g.Key())
			delete(s.grants, k)
		}
	}
	return nil
}

func (s *Store) DeleteGrantsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.grants {
		if g.TenantID == tenantID {
			delete(s.grantKeys, g.Key())
			delete(s.grants, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Decision Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateDecision(_ context.Context, e *decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[e.ID.String()] = copyDecision(e)
	return nil
}

func (s *Store) GetDecision(_ context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.decisions[logID.String()]
	if !ok {
		return nil, fmt.Errorf("decision %s: %w", logID, decisionlog.ErrNotFound)
	}
	return copyDecision(e), nil
}

func (s *Store) ListDecisions(_ context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*decisionlog.Entry, 0, len(s.decisions))
	for _, e := range s.decisions {
		if filter != nil && !matchesDecisionFilter(e, filter) {
			continue
		}
		result = append(result, copyDecision(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountDecisions(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	var f decisionlog.QueryFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0
	list, err := s.ListDecisions(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeDecisions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.decisions {
		if e.CreatedAt.Before(before) {
			delete(s.decisions, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteDecisionsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.decisions {
		if e.TenantID == tenantID {
			delete(s.decisions, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matchesFilter(g *grant.Grant, f *grant.ListFilter) bool {
	if f.TenantID != "" && g.TenantID != f.TenantID {
		return false
	}
	if f.UserID != "" && g.UserID != f.UserID {
		return false
	}
	if f.RoleID != "" && g.RoleID != f.RoleID {
		return false
	}
	if !f.ModuleID.IsNil() && g.ModuleID.String() != f.ModuleID.String() {
		return false
	}
	if f.TargetType != "" && g.TargetType != f.TargetType {
		return false
	}
	if f.TargetID != "" && g.TargetID != f.TargetID {
		return false
	}
	if f.Action != "" && g.Action != f.Action {
		return false
	}
	if f.Scope != "" && g.Scope != f.Scope {
		return false
	}
	return true
}

// matchesQuery implements the resolver predicate, including the target
// asymmetry: a concrete target also accepts unscoped rows, an empty target
// accepts only unscoped rows.
func matchesQuery(g *grant.Grant, q *grant.MatchQuery) bool {
	if g.TenantID != q.TenantID {
		return false
	}
	if g.ModuleID.String() != q.ModuleID.String() {
		return false
	}
	if g.TargetType != q.TargetType {
		return false
	}
	if q.TargetID != "" {
		if g.TargetID != q.TargetID && g.TargetID != "" {
			return false
		}
	} else if g.TargetID != "" {
		return false
	}
	actionOK := false
	for _, a := range q.Actions {
		if g.Action == a {
			actionOK = true
			break
		}
	}
	if !actionOK {
		return false
	}
	if q.UserID != "" && g.UserID == q.UserID {
		return true
	}
	if q.RoleID != "" && g.RoleID == q.RoleID {
		return true
	}
	return false
}

func matchesDecisionFilter(e *decisionlog.Entry, f *decisionlog.QueryFilter) bool {
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Module != "" && e.Module != f.Module {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.TargetType != "" && e.TargetType != f.TargetType {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if f.Allowed != nil && e.Allowed != *f.Allowed {
		return false
	}
	if f.After != nil && e.CreatedAt.Before(*f.After) {
		return false
	}
	if f.Before != nil && e.CreatedAt.After(*f.Before) {
		return false
	}
	return true
}

func copyModule(m *module.Module) *module.Module {
	c := *m
	return &c
}

func copyGrant(g *grant.Grant) *grant.Grant {
	c := *g
	return &c
}

func copyDecision(e *decisionlog.Entry) *decisionlog.Entry {
	c := *e
	return &c
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset > 0 {
		return nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
