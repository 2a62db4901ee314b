package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/queuestore"
	"github.com/notifyhub/tenantq/internal/ratelimiter"
	"github.com/notifyhub/tenantq/internal/routing"
)

// Hooks are optional metric callbacks invoked on successful operations.
// Zero-value fields are skipped, so tests can pass Hooks{}.
type Hooks struct {
	OnEnqueued  func(queue string)
	OnClaimed   func(queue string, count int)
	OnCompleted func(queue string)
}

// QueueService routes events and consumer channels to queues and drives the
// store. The thin HTTP controllers translate its operations 1:1; it holds
// all the validation and routing logic, so handlers stay trivial.
type QueueService struct {
	tables  *routing.Tables
	store   queuestore.Store
	limiter *ratelimiter.TenantLimiters
	hooks   Hooks
	logger  *zap.Logger
}

func NewQueueService(
	tables *routing.Tables,
	store queuestore.Store,
	limiter *ratelimiter.TenantLimiters,
	hooks Hooks,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		tables:  tables,
		store:   store,
		limiter: limiter,
		hooks:   hooks,
		logger:  logger,
	}
}

// Publish routes an event to its destination queue and enqueues the payload.
// Returns the durable item id once the write is committed.
func (s *QueueService) Publish(ctx context.Context, eventType, tenantID string, payload json.RawMessage) (int64, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return 0, err
	}

	queue, err := s.tables.ResolveDestinationQueue(eventType)
	if err != nil {
		return 0, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, tenantID); err != nil {
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	id, err := s.store.Enqueue(ctx, tenantID, queue, payload)
	if err != nil {
		return 0, err
	}

	if s.hooks.OnEnqueued != nil {
		s.hooks.OnEnqueued(queue)
	}
	s.logger.Debug("item enqueued",
		zap.String("tenant", tenantID),
		zap.String("queue", queue),
		zap.String("event_type", eventType),
		zap.Int64("id", id),
	)
	return id, nil
}

// Poll claims up to count pending items from the channel's source queue.
// An empty result means the queue has nothing pending; pollers back off via
// their own interval, the engine performs no internal retries.
func (s *QueueService) Poll(ctx context.Context, channel, tenantID string, count int) ([]domain.QueueItem, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if channel == "" {
		return nil, domain.ErrMissingChannel
	}

	queue, err := s.tables.ResolveSourceQueue(channel)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Claim(ctx, tenantID, queue, channel, count)
	if err != nil {
		return nil, err
	}

	if s.hooks.OnClaimed != nil {
		s.hooks.OnClaimed(queue, len(items))
	}
	return items, nil
}

// Complete marks a claimed item done on the channel's source queue.
func (s *QueueService) Complete(ctx context.Context, channel, tenantID string, itemID int64, result string) error {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if channel == "" {
		return domain.ErrMissingChannel
	}

	queue, err := s.tables.ResolveSourceQueue(channel)
	if err != nil {
		return err
	}

	if err := s.store.MarkDone(ctx, tenantID, queue, itemID, result); err != nil {
		return err
	}

	if s.hooks.OnCompleted != nil {
		s.hooks.OnCompleted(queue)
	}
	return nil
}

// Depths reports the census of every declared queue for one tenant.
func (s *QueueService) Depths(ctx context.Context, tenantID string) (map[string]queuestore.Depth, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	out := make(map[string]queuestore.Depth)
	for _, queue := range s.tables.Queues() {
		d, err := s.store.Depth(ctx, tenantID, queue)
		if err != nil {
			return nil, err
		}
		out[queue] = d
	}
	return out, nil
}
