package queuestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notifyhub/tenantq/internal/db"
	"github.com/notifyhub/tenantq/internal/domain"
)

// Processor is the typed read/complete façade for one (tenant, queue) pair.
// Like Inserter it is stateless beyond its SQL text and safe to share.
type Processor struct {
	tenant   string
	queue    string
	resolver *db.Resolver

	claimSQL  string
	doneSQL   string
	statusSQL string
	depthSQL  string
}

func newProcessor(tenant, queue string, resolver *db.Resolver) (*Processor, error) {
	if err := validQueueName(queue); err != nil {
		return nil, err
	}
	return &Processor{
		tenant:   tenant,
		queue:    queue,
		resolver: resolver,
		// Lock-and-skip: rows another in-flight Claim has selected are
		// locked and skipped, so concurrent calls never return overlapping
		// sets. The inner SELECT and the UPDATE commit as one statement.
		claimSQL: fmt.Sprintf(`
			WITH picked AS (
				SELECT id FROM queues.%s
				WHERE status = 'pending'
				ORDER BY created_at ASC, id ASC
				FOR UPDATE SKIP LOCKED
				LIMIT $2
			)
			UPDATE queues.%s q
			SET status = 'claimed', claimed_by = $1, claimed_at = now()
			FROM picked
			WHERE q.id = picked.id
			RETURNING q.id, q.payload, q.status, q.claimed_by, q.claimed_at,
			          q.result, q.done_at, q.created_at`, queue, queue),
		doneSQL: fmt.Sprintf(`
			UPDATE queues.%s
			SET status = 'done', result = $2, done_at = now()
			WHERE id = $1 AND status = 'claimed'`, queue),
		statusSQL: fmt.Sprintf(`SELECT status FROM queues.%s WHERE id = $1`, queue),
		depthSQL: fmt.Sprintf(`
			SELECT
				COUNT(*) FILTER (WHERE status = 'pending'),
				COUNT(*) FILTER (WHERE status = 'claimed'),
				COUNT(*) FILTER (WHERE status = 'done')
			FROM queues.%s`, queue),
	}, nil
}

// TakeForProcessing claims up to maxCount of the oldest pending items for
// consumer. Once claimed, an item stays claimed until MakeDone is called —
// there is no lease timeout, so a crashed consumer leaves its batch stuck
// (known limitation of the pipeline; operators re-drive via SQL).
func (p *Processor) TakeForProcessing(ctx context.Context, consumer string, maxCount int) ([]domain.QueueItem, error) {
	if maxCount <= 0 {
		return nil, domain.ErrInvalidClaimCount
	}

	pool, err := p.resolver.Resolve(ctx, p.tenant)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, p.claimSQL, consumer, maxCount)
	if err != nil {
		return nil, mapPgError(err, p.tenant, p.queue)
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		var it domain.QueueItem
		if err := rows.Scan(
			&it.ID, &it.Payload, &it.Status, &it.ClaimedBy, &it.ClaimedAt,
			&it.Result, &it.DoneAt, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, p.tenant, p.queue)
	}
	return items, nil
}

// MakeDone closes a claimed item with the given result text. A repeat call
// on an already-done item is a no-op; an id that was never claimed is
// rejected so status can never regress.
func (p *Processor) MakeDone(ctx context.Context, itemID int64, result string) error {
	pool, err := p.resolver.Resolve(ctx, p.tenant)
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, p.doneSQL, itemID, result)
	if err != nil {
		return mapPgError(err, p.tenant, p.queue)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: distinguish missing, already-done, and not-yet-claimed.
	var status domain.ItemStatus
	err = pool.QueryRow(ctx, p.statusSQL, itemID).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemID)
	case err != nil:
		return mapPgError(err, p.tenant, p.queue)
	case status == domain.StatusDone:
		return nil
	default:
		return fmt.Errorf("%w: id %d", domain.ErrItemNotClaimed, itemID)
	}
}

// CountByStatus returns the queue's pending/claimed/done census.
func (p *Processor) CountByStatus(ctx context.Context) (Depth, error) {
	pool, err := p.resolver.Resolve(ctx, p.tenant)
	if err != nil {
		return Depth{}, err
	}

	var d Depth
	if err := pool.QueryRow(ctx, p.depthSQL).Scan(&d.Pending, &d.Claimed, &d.Done); err != nil {
		return Depth{}, mapPgError(err, p.tenant, p.queue)
	}
	return d, nil
}
