package queuestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/notifyhub/tenantq/internal/domain"
)

// MemoryStore is a hand-written, in-memory implementation of Store used in
// unit tests. It enforces the same semantics as the Postgres store: claims
// are atomic under one lock, statuses never regress, tenants are fully
// isolated, and a queue must be materialized before use.
type MemoryStore struct {
	mu      sync.Mutex
	tenants map[string]map[string][]*domain.QueueItem
	nextID  map[string]int64

	// Optional error overrides — set in tests to simulate failure paths.
	EnqueueErr  error
	ClaimErr    error
	MarkDoneErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]map[string][]*domain.QueueItem),
		nextID:  make(map[string]int64),
	}
}

// OnboardTenant materializes the given queues for a tenant, mirroring what
// the lifecycle manager does against Postgres.
func (m *MemoryStore) OnboardTenant(tenant string, queues []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs := make(map[string][]*domain.QueueItem, len(queues))
	for _, q := range queues {
		qs[q] = nil
	}
	m.tenants[tenant] = qs
}

// TeardownTenant removes the tenant's storage domain entirely.
func (m *MemoryStore) TeardownTenant(tenant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, tenant)
}

func (m *MemoryStore) queueLocked(tenant, queue string) ([]*domain.QueueItem, error) {
	qs, ok := m.tenants[tenant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTenantUnknown, tenant)
	}
	items, ok := qs[queue]
	if !ok {
		return nil, fmt.Errorf("%w: %q (tenant %q)", domain.ErrQueueNotFound, queue, tenant)
	}
	return items, nil
}

func (m *MemoryStore) Enqueue(_ context.Context, tenant, queue string, payload json.RawMessage) (int64, error) {
	if m.EnqueueErr != nil {
		return 0, m.EnqueueErr
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return 0, domain.ErrInvalidPayload
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.queueLocked(tenant, queue); err != nil {
		return 0, err
	}

	seq := tenant + "/" + queue
	m.nextID[seq]++
	item := &domain.QueueItem{
		ID:        m.nextID[seq],
		Payload:   append(json.RawMessage(nil), payload...),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	m.tenants[tenant][queue] = append(m.tenants[tenant][queue], item)
	return item.ID, nil
}

func (m *MemoryStore) Claim(_ context.Context, tenant, queue, consumer string, maxCount int) ([]domain.QueueItem, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	if maxCount <= 0 {
		return nil, domain.ErrInvalidClaimCount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.queueLocked(tenant, queue)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var claimed []domain.QueueItem
	for _, it := range items {
		if len(claimed) == maxCount {
			break
		}
		if it.Status != domain.StatusPending {
			continue
		}
		it.Status = domain.StatusClaimed
		who := consumer
		it.ClaimedBy = &who
		at := now
		it.ClaimedAt = &at
		claimed = append(claimed, *it)
	}
	return claimed, nil
}

func (m *MemoryStore) MarkDone(_ context.Context, tenant, queue string, itemID int64, result string) error {
	if m.MarkDoneErr != nil {
		return m.MarkDoneErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.queueLocked(tenant, queue)
	if err != nil {
		return err
	}

	for _, it := range items {
		if it.ID != itemID {
			continue
		}
		switch it.Status {
		case domain.StatusDone:
			return nil // repeat call is a no-op
		case domain.StatusPending:
			return fmt.Errorf("%w: id %d", domain.ErrItemNotClaimed, itemID)
		}
		it.Status = domain.StatusDone
		res := result
		it.Result = &res
		at := time.Now().UTC()
		it.DoneAt = &at
		return nil
	}
	return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemID)
}

func (m *MemoryStore) Depth(_ context.Context, tenant, queue string) (Depth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.queueLocked(tenant, queue)
	if err != nil {
		return Depth{}, err
	}

	var d Depth
	for _, it := range items {
		switch it.Status {
		case domain.StatusPending:
			d.Pending++
		case domain.StatusClaimed:
			d.Claimed++
		case domain.StatusDone:
			d.Done++
		}
	}
	return d, nil
}
