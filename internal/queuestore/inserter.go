package queuestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notifyhub/tenantq/internal/db"
	"github.com/notifyhub/tenantq/internal/domain"
)

// Inserter is the typed write façade for one (tenant, queue) pair.
// It holds no connection state of its own — the resolver caches the pool —
// so a cached Inserter is safe for concurrent reuse across requests.
type Inserter struct {
	tenant    string
	queue     string
	resolver  *db.Resolver
	insertSQL string
}

func newInserter(tenant, queue string, resolver *db.Resolver) (*Inserter, error) {
	if err := validQueueName(queue); err != nil {
		return nil, err
	}
	return &Inserter{
		tenant:   tenant,
		queue:    queue,
		resolver: resolver,
		// The table name cannot be a bind parameter; it is fixed at
		// construction from the validated, closed routing set.
		insertSQL: fmt.Sprintf(`
			INSERT INTO queues.%s (payload, status, created_at)
			VALUES ($1, 'pending', now())
			RETURNING id`, queue),
	}, nil
}

// Insert writes one pending item and returns its id. The call does not
// return until the row is committed.
func (i *Inserter) Insert(ctx context.Context, payload json.RawMessage) (int64, error) {
	if len(payload) == 0 || !json.Valid(payload) {
		return 0, domain.ErrInvalidPayload
	}

	pool, err := i.resolver.Resolve(ctx, i.tenant)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := pool.QueryRow(ctx, i.insertSQL, payload).Scan(&id); err != nil {
		return 0, mapPgError(err, i.tenant, i.queue)
	}
	return id, nil
}
