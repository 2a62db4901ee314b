package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
)

// QueueClient is the slice of the queue service a polling consumer needs.
type QueueClient interface {
	Poll(ctx context.Context, channel, tenantID string, count int) ([]domain.QueueItem, error)
	Complete(ctx context.Context, channel, tenantID string, itemID int64, result string) error
}

// Handler processes one claimed item and returns the result text recorded
// on completion. A handler error leaves the item claimed: with no lease
// timeout in the engine, a failed item stays parked until an operator
// intervenes, so handlers should only fail on genuinely unprocessable input.
type Handler func(ctx context.Context, item domain.QueueItem) (string, error)

// Poller is a fixed-interval polling consumer for one (channel, tenant)
// pair. Consumers poll every few tens of seconds rather than reacting to
// events; concurrent pollers on the same queue are safe because claim
// atomicity lives in the storage layer, not here.
type Poller struct {
	client   QueueClient
	channel  string
	tenant   string
	batch    int
	interval time.Duration
	handle   Handler
	logger   *zap.Logger
}

func NewPoller(
	client QueueClient,
	channel, tenant string,
	batch int,
	interval time.Duration,
	handle Handler,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		client:   client,
		channel:  channel,
		tenant:   tenant,
		batch:    batch,
		interval: interval,
		handle:   handle,
		logger:   logger,
	}
}

// Run ticks every interval until ctx is cancelled. Cancellation is honored
// between items, never mid-claim: an in-flight Poll call completes once
// started.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		zap.String("channel", p.channel),
		zap.String("tenant", p.tenant),
		zap.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", zap.String("channel", p.channel))
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	items, err := p.client.Poll(ctx, p.channel, p.tenant, p.batch)
	if err != nil {
		p.logger.Error("poll error",
			zap.String("channel", p.channel),
			zap.String("tenant", p.tenant),
			zap.Error(err),
		)
		return
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := p.handle(ctx, item)
		if err != nil {
			p.logger.Warn("handler error, item stays claimed",
				zap.String("channel", p.channel),
				zap.Int64("id", item.ID),
				zap.Error(err),
			)
			continue
		}

		if err := p.client.Complete(ctx, p.channel, p.tenant, item.ID, result); err != nil {
			p.logger.Error("complete error",
				zap.String("channel", p.channel),
				zap.Int64("id", item.ID),
				zap.Error(err),
			)
		}
	}
}
