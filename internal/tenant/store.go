// Package tenant implements the tenant lifecycle manager: onboarding a
// tenant provisions its isolated database, queue tables, and scoped
// credential; teardown removes all of it. The control-plane store tracks
// tenant metadata so partial failures are observable.
package tenant

import (
	"context"

	"github.com/notifyhub/tenantq/internal/domain"
)

// ControlPlaneStore defines persistence for tenant metadata.
// The pgx implementation is in pg_store.go; tests use a hand-written mock.
type ControlPlaneStore interface {
	Insert(ctx context.Context, t *domain.Tenant) error
	Get(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error
	Delete(ctx context.Context, id string) error
}

// Provisioner performs the storage-domain DDL that onboarding and teardown
// need: database create/drop, schema materialization, role management, and
// backend termination. Split from the manager so the orchestration logic is
// testable without a running cluster.
type Provisioner interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	ApplySchema(ctx context.Context, name string, queues []string) error
	CreateRole(ctx context.Context, dbName, user, secret string) error
	TerminateConnections(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	DropRole(ctx context.Context, user string) error
}
