package domain

import (
	"encoding/json"
	"time"
)

// ItemStatus tracks the lifecycle of a queue item.
// Transitions are monotonic: pending -> claimed -> done, never backwards.
type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusClaimed ItemStatus = "claimed"
	StatusDone    ItemStatus = "done"
)

// QueueItem is one durable work item in a tenant queue.
// Items are never deleted; done items remain as an audit trail.
type QueueItem struct {
	ID        int64           `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Status    ItemStatus      `json:"status"`
	ClaimedBy *string         `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time      `json:"claimed_at,omitempty"`
	Result    *string         `json:"result,omitempty"`
	DoneAt    *time.Time      `json:"done_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
