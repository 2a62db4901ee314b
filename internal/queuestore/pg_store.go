package queuestore

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/db"
	"github.com/notifyhub/tenantq/internal/domain"
)

type facadeKey struct {
	tenant string
	queue  string
}

// PgStore is the Postgres-backed Store. Inserter and Processor façades are
// cached per (tenant, queue) to avoid rebuilding SQL on every call.
// Construction races converge: the first instance stored wins, losers are
// discarded (they hold no resources).
type PgStore struct {
	resolver *db.Resolver
	logger   *zap.Logger

	mu         sync.RWMutex
	inserters  map[facadeKey]*Inserter
	processors map[facadeKey]*Processor
}

func NewPgStore(resolver *db.Resolver, logger *zap.Logger) *PgStore {
	return &PgStore{
		resolver:   resolver,
		logger:     logger,
		inserters:  make(map[facadeKey]*Inserter),
		processors: make(map[facadeKey]*Processor),
	}
}

func (s *PgStore) inserterFor(tenant, queue string) (*Inserter, error) {
	key := facadeKey{tenant, queue}

	s.mu.RLock()
	ins, ok := s.inserters[key]
	s.mu.RUnlock()
	if ok {
		return ins, nil
	}

	fresh, err := newInserter(tenant, queue, s.resolver)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.inserters[key]; ok {
		return existing, nil
	}
	s.inserters[key] = fresh
	return fresh, nil
}

func (s *PgStore) processorFor(tenant, queue string) (*Processor, error) {
	key := facadeKey{tenant, queue}

	s.mu.RLock()
	proc, ok := s.processors[key]
	s.mu.RUnlock()
	if ok {
		return proc, nil
	}

	fresh, err := newProcessor(tenant, queue, s.resolver)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.processors[key]; ok {
		return existing, nil
	}
	s.processors[key] = fresh
	return fresh, nil
}

func (s *PgStore) Enqueue(ctx context.Context, tenant, queue string, payload json.RawMessage) (int64, error) {
	if err := domain.ValidateTenantID(tenant); err != nil {
		return 0, err
	}
	ins, err := s.inserterFor(tenant, queue)
	if err != nil {
		return 0, err
	}
	return ins.Insert(ctx, payload)
}

func (s *PgStore) Claim(ctx context.Context, tenant, queue, consumer string, maxCount int) ([]domain.QueueItem, error) {
	if err := domain.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	proc, err := s.processorFor(tenant, queue)
	if err != nil {
		return nil, err
	}
	return proc.TakeForProcessing(ctx, consumer, maxCount)
}

func (s *PgStore) MarkDone(ctx context.Context, tenant, queue string, itemID int64, result string) error {
	if err := domain.ValidateTenantID(tenant); err != nil {
		return err
	}
	proc, err := s.processorFor(tenant, queue)
	if err != nil {
		return err
	}
	return proc.MakeDone(ctx, itemID, result)
}

func (s *PgStore) Depth(ctx context.Context, tenant, queue string) (Depth, error) {
	if err := domain.ValidateTenantID(tenant); err != nil {
		return Depth{}, err
	}
	proc, err := s.processorFor(tenant, queue)
	if err != nil {
		return Depth{}, err
	}
	return proc.CountByStatus(ctx)
}

// Evict drops every cached façade for a tenant. Called by teardown so a
// re-onboarded tenant starts from a clean slate.
func (s *PgStore) Evict(tenant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.inserters {
		if key.tenant == tenant {
			delete(s.inserters, key)
		}
	}
	for key := range s.processors {
		if key.tenant == tenant {
			delete(s.processors, key)
		}
	}
	s.logger.Debug("queue façades evicted", zap.String("tenant", tenant))
}
