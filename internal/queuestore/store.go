// Package queuestore implements the durable table-per-queue storage layer.
//
// Every queue is one table in the tenant's "queues" schema. Claiming is the
// only operation with a real concurrency contract: no two Claim calls ever
// return overlapping item sets for the same queue, enforced with row locks
// (FOR UPDATE SKIP LOCKED), not application mutexes — consumers are separate
// processes that share no memory.
package queuestore

import (
	"context"
	"encoding/json"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Store defines all queue persistence operations.
// The pgx implementation is in pg_store.go; tests use the in-memory
// MemoryStore (memory_store.go), which honors the same claim semantics.
type Store interface {
	// Enqueue inserts one pending item and returns its id once the write
	// is committed. Storage failures are surfaced, never retried here.
	Enqueue(ctx context.Context, tenant, queue string, payload json.RawMessage) (int64, error)

	// Claim atomically transitions up to maxCount of the oldest pending
	// items to claimed, owned by consumer. An empty queue yields an empty
	// slice, not an error.
	Claim(ctx context.Context, tenant, queue, consumer string, maxCount int) ([]domain.QueueItem, error)

	// MarkDone transitions a claimed item to done, recording result.
	// Calling it again on an already-done item is a no-op.
	MarkDone(ctx context.Context, tenant, queue string, itemID int64, result string) error

	// Depth reports per-status item counts for one queue.
	Depth(ctx context.Context, tenant, queue string) (Depth, error)
}

// Depth is a point-in-time census of one queue.
type Depth struct {
	Pending int `json:"pending"`
	Claimed int `json:"claimed"`
	Done    int `json:"done"`
}
