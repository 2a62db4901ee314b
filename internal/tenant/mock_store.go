package tenant

import (
	"context"
	"fmt"
	"sync"

	"github.com/notifyhub/tenantq/internal/domain"
)

// MockControlPlaneStore is a hand-written, in-memory ControlPlaneStore used
// in unit tests. No mock-generation library needed.
type MockControlPlaneStore struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant

	// Optional error overrides — set in tests to simulate failure paths.
	InsertErr       error
	UpdateStatusErr error
	DeleteErr       error
}

func NewMockControlPlaneStore() *MockControlPlaneStore {
	return &MockControlPlaneStore{tenants: make(map[string]*domain.Tenant)}
}

func (m *MockControlPlaneStore) Insert(_ context.Context, t *domain.Tenant) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; ok {
		return fmt.Errorf("%w: %q", domain.ErrTenantExists, t.ID)
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MockControlPlaneStore) Get(_ context.Context, id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	cp := *t
	return &cp, nil
}

func (m *MockControlPlaneStore) List(_ context.Context) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockControlPlaneStore) UpdateStatus(_ context.Context, id string, status domain.TenantStatus) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	t.Status = status
	return nil
}

func (m *MockControlPlaneStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[id]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	delete(m.tenants, id)
	return nil
}

// MockProvisioner records the DDL operations it was asked to perform, in
// order, so tests can assert both outcomes and sequencing.
type MockProvisioner struct {
	mu        sync.Mutex
	Calls     []string
	Databases map[string]bool
	Roles     map[string]bool

	CreateDatabaseErr error
	ApplySchemaErr    error
	CreateRoleErr     error
	TerminateErr      error
	DropDatabaseErr   error
	DropRoleErr       error
}

func NewMockProvisioner() *MockProvisioner {
	return &MockProvisioner{
		Databases: make(map[string]bool),
		Roles:     make(map[string]bool),
	}
}

func (m *MockProvisioner) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockProvisioner) DatabaseExists(_ context.Context, name string) (bool, error) {
	m.record("exists:" + name)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Databases[name], nil
}

func (m *MockProvisioner) CreateDatabase(_ context.Context, name string) error {
	m.record("create_db:" + name)
	if m.CreateDatabaseErr != nil {
		return m.CreateDatabaseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Databases[name] = true
	return nil
}

func (m *MockProvisioner) ApplySchema(_ context.Context, name string, _ []string) error {
	m.record("apply_schema:" + name)
	return m.ApplySchemaErr
}

func (m *MockProvisioner) CreateRole(_ context.Context, _, user, _ string) error {
	m.record("create_role:" + user)
	if m.CreateRoleErr != nil {
		return m.CreateRoleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Roles[user] = true
	return nil
}

func (m *MockProvisioner) TerminateConnections(_ context.Context, name string) error {
	m.record("terminate:" + name)
	return m.TerminateErr
}

func (m *MockProvisioner) DropDatabase(_ context.Context, name string) error {
	m.record("drop_db:" + name)
	if m.DropDatabaseErr != nil {
		return m.DropDatabaseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Databases, name)
	return nil
}

func (m *MockProvisioner) DropRole(_ context.Context, user string) error {
	m.record("drop_role:" + user)
	if m.DropRoleErr != nil {
		return m.DropRoleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Roles, user)
	return nil
}
