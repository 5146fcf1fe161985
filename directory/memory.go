package directory

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface check.
var _ Directory = (*Memory)(nil)

// Memory is a thread-safe in-memory Directory for tests and standalone
// wiring.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]*User            // tenant/user -> record
	roles   map[string]*Role            // tenant/role -> record
	targets map[string]map[string]bool  // tenant -> type/id -> exists
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*User),
		roles:   make(map[string]*Role),
		targets: make(map[string]map[string]bool),
	}
}

// AddUser registers a user record.
func (m *Memory) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := u
	m.users[scopedKey(u.TenantID, u.ID)] = &cp
}

// AddRole registers a role record.
func (m *Memory) AddRole(r Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := r
	m.roles[scopedKey(r.TenantID, r.ID)] = &cp
}

// AddTarget registers an existing target entity.
func (m *Memory) AddTarget(tenantID, targetType, targetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.targets[tenantID] == nil {
		m.targets[tenantID] = make(map[string]bool)
	}
	m.targets[tenantID][scopedKey(targetType, targetID)] = true
}

// UserByID retrieves a user within the tenant.
func (m *Memory) UserByID(_ context.Context, tenantID, userID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[scopedKey(tenantID, userID)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// RoleByID retrieves a role within the tenant.
func (m *Memory) RoleByID(_ context.Context, tenantID, roleID string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[scopedKey(tenantID, roleID)]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

// Exists reports whether the target was registered in the tenant.
func (m *Memory) Exists(_ context.Context, tenantID, targetType, targetID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targets[tenantID][scopedKey(targetType, targetID)], nil
}

func scopedKey(a, b string) string {
	return a + "/" + b
}
