package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Evictor invalidates per-tenant cached state (connection pools, queue
// façades) before the tenant's database is dropped.
type Evictor interface {
	Evict(tenantID string)
}

// ConnInfoFunc builds the connection descriptor for a tenant database and
// user; wired to the resolver so operational tooling sees the same target
// the engine uses.
type ConnInfoFunc func(tenantID, user string) domain.ConnectionInfo

// LifecycleHooks are optional metric callbacks. Zero-value fields are skipped.
type LifecycleHooks struct {
	OnStep      func(step string)
	OnOnboarded func()
	OnTornDown  func()
}

// Manager drives the tenant state machine:
// unregistered -> provisioning -> active -> tearing down -> unregistered.
//
// Onboarding is an explicit step sequence with no rollback: a failure
// leaves the tenant in status "provisioning" and the error names the failed
// step, so operators run teardown and retry. Cross-system atomicity between
// the control plane and the tenant cluster is not attempted.
type Manager struct {
	cp       ControlPlaneStore
	prov     Provisioner
	queues   []string
	evictors []Evictor
	connInfo ConnInfoFunc
	hooks    LifecycleHooks
	logger   *zap.Logger
}

func NewManager(
	cp ControlPlaneStore,
	prov Provisioner,
	queues []string,
	connInfo ConnInfoFunc,
	hooks LifecycleHooks,
	logger *zap.Logger,
	evictors ...Evictor,
) *Manager {
	return &Manager{
		cp:       cp,
		prov:     prov,
		queues:   queues,
		evictors: evictors,
		connInfo: connInfo,
		hooks:    hooks,
		logger:   logger,
	}
}

type provisionStep struct {
	name string
	run  func(ctx context.Context) error
}

// Onboard provisions a tenant end to end. Each completed step is logged so
// a partial failure is diagnosable from the log alone.
func (m *Manager) Onboard(ctx context.Context, req domain.OnboardRequest) (*domain.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Tenant{
		ID:          req.TenantID,
		DisplayName: req.DisplayName,
		Tier:        req.Tier,
		Status:      domain.TenantProvisioning,
		DBUser:      req.TenantID + "_svc",
		DBSecret:    strings.ReplaceAll(uuid.New().String(), "-", ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.logger.Info("tenant onboarding started",
		zap.String("tenant", t.ID), zap.String("tier", string(t.Tier)))

	if err := m.cp.Insert(ctx, t); err != nil {
		return nil, err
	}
	m.completedStep(t.ID, "register metadata")

	steps := []provisionStep{
		{"create database", func(ctx context.Context) error {
			exists, err := m.prov.DatabaseExists(ctx, t.ID)
			if err != nil {
				return err
			}
			if exists {
				// Residue from an earlier partial onboarding; schema
				// application below is idempotent over it.
				m.logger.Warn("tenant database already exists", zap.String("tenant", t.ID))
				return nil
			}
			return m.prov.CreateDatabase(ctx, t.ID)
		}},
		{"apply schema", func(ctx context.Context) error {
			return m.prov.ApplySchema(ctx, t.ID, m.queues)
		}},
		{"create scoped credential", func(ctx context.Context) error {
			return m.prov.CreateRole(ctx, t.ID, t.DBUser, t.DBSecret)
		}},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			m.logger.Error("tenant onboarding failed",
				zap.String("tenant", t.ID),
				zap.String("step", step.name),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: step %q: %w", domain.ErrPartialProvisioning, step.name, err)
		}
		m.completedStep(t.ID, step.name)
	}

	if err := m.cp.UpdateStatus(ctx, t.ID, domain.TenantActive); err != nil {
		return nil, fmt.Errorf("%w: step %q: %w", domain.ErrPartialProvisioning, "activate", err)
	}
	t.Status = domain.TenantActive

	if m.hooks.OnOnboarded != nil {
		m.hooks.OnOnboarded()
	}
	m.logger.Info("tenant onboarding complete", zap.String("tenant", t.ID))
	return t, nil
}

// Teardown removes a tenant. Metadata goes first, so no new work can target
// the tenant mid-teardown; then live sessions are severed before the
// database is dropped. Teardown is the recovery path for a partial
// onboarding, so every destructive step tolerates already-absent objects.
func (m *Manager) Teardown(ctx context.Context, tenantID string) error {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return err
	}

	t, err := m.cp.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	m.logger.Info("tenant teardown started", zap.String("tenant", tenantID))

	if err := m.cp.Delete(ctx, tenantID); err != nil {
		return err
	}
	m.logger.Info("tenant metadata removed", zap.String("tenant", tenantID))

	for _, ev := range m.evictors {
		ev.Evict(tenantID)
	}

	if err := m.prov.TerminateConnections(ctx, tenantID); err != nil {
		return err
	}
	m.logger.Info("tenant connections terminated", zap.String("tenant", tenantID))

	if err := m.prov.DropDatabase(ctx, tenantID); err != nil {
		return err
	}
	m.logger.Info("tenant database dropped", zap.String("tenant", tenantID))

	if err := m.prov.DropRole(ctx, t.DBUser); err != nil {
		return err
	}
	m.logger.Info("tenant credential dropped", zap.String("tenant", tenantID))

	if m.hooks.OnTornDown != nil {
		m.hooks.OnTornDown()
	}
	m.logger.Info("tenant teardown complete", zap.String("tenant", tenantID))
	return nil
}

// GetConnectionInfo returns the tenant's connection descriptor for
// operational tooling. The credential secret is never included.
func (m *Manager) GetConnectionInfo(ctx context.Context, tenantID string) (domain.ConnectionInfo, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return domain.ConnectionInfo{}, err
	}
	t, err := m.cp.Get(ctx, tenantID)
	if err != nil {
		return domain.ConnectionInfo{}, err
	}
	return m.connInfo(t.ID, t.DBUser), nil
}

// Get returns the control-plane record for one tenant.
func (m *Manager) Get(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return m.cp.Get(ctx, tenantID)
}

// List returns all registered tenants.
func (m *Manager) List(ctx context.Context) ([]*domain.Tenant, error) {
	return m.cp.List(ctx)
}

func (m *Manager) completedStep(tenantID, step string) {
	if m.hooks.OnStep != nil {
		m.hooks.OnStep(step)
	}
	m.logger.Info("onboarding step complete",
		zap.String("tenant", tenantID), zap.String("step", step))
}
