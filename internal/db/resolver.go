package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Resolver maps a tenant identifier to a connection pool for that tenant's
// isolated database. Host and credentials come from a base template; only
// the database name varies per tenant.
//
// Pools are cached and lazily constructed. Construction races converge to a
// single pool: the loser closes its instance and adopts the winner's.
// Resolve does not verify the tenant exists — queries against a missing
// database fail at the storage layer with ErrTenantUnknown.
type Resolver struct {
	baseCfg *pgxpool.Config
	logger  *zap.Logger

	mu    sync.RWMutex
	pools map[string]*pgxpool.Pool
}

// NewResolver parses the base connection template. An empty template is a
// deployment mismatch, reported as ErrTenantNotConfigured.
func NewResolver(baseURL string, maxConns, minConns int32, logger *zap.Logger) (*Resolver, error) {
	if baseURL == "" {
		return nil, domain.ErrTenantNotConfigured
	}

	cfg, err := pgxpool.ParseConfig(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse tenant database template: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	return &Resolver{
		baseCfg: cfg,
		logger:  logger,
		pools:   make(map[string]*pgxpool.Pool),
	}, nil
}

// Resolve returns the pool for tenantID, constructing it on first use.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*pgxpool.Pool, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	pool, ok := r.pools[tenantID]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	cfg := r.baseCfg.Copy()
	cfg.ConnConfig.Database = tenantID

	fresh, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create tenant pool for %q: %w", tenantID, err)
	}

	r.mu.Lock()
	if existing, ok := r.pools[tenantID]; ok {
		r.mu.Unlock()
		fresh.Close()
		return existing, nil
	}
	r.pools[tenantID] = fresh
	r.mu.Unlock()

	r.logger.Debug("tenant pool created", zap.String("tenant", tenantID))
	return fresh, nil
}

// Evict closes and removes the cached pool for tenantID, if any.
// Called by teardown so the dropped database holds no live connections
// from this process.
func (r *Resolver) Evict(tenantID string) {
	r.mu.Lock()
	pool, ok := r.pools[tenantID]
	delete(r.pools, tenantID)
	r.mu.Unlock()

	if ok {
		pool.Close()
		r.logger.Debug("tenant pool evicted", zap.String("tenant", tenantID))
	}
}

// ConnectionInfo reports the host, port, and database name the resolver
// would use for tenantID. The user is taken from the control-plane record,
// not from the template, so callers pass it in.
func (r *Resolver) ConnectionInfo(tenantID, user string) domain.ConnectionInfo {
	return domain.ConnectionInfo{
		Host:     r.baseCfg.ConnConfig.Host,
		Port:     r.baseCfg.ConnConfig.Port,
		Database: tenantID,
		User:     user,
	}
}

// Close closes every cached pool.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pool := range r.pools {
		pool.Close()
		delete(r.pools, id)
	}
}
