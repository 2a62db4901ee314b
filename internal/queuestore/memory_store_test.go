package queuestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/queuestore"
)

const (
	testTenant = "acme"
	testQueue  = "emails_to_be_sent"
)

func newStore() *queuestore.MemoryStore {
	s := queuestore.NewMemoryStore()
	s.OnboardTenant(testTenant, []string{testQueue})
	return s
}

func enqueueN(t *testing.T, s *queuestore.MemoryStore, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i))
		id, err := s.Enqueue(ctx, testTenant, testQueue, payload)
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestEnqueue_InvalidPayload(t *testing.T) {
	s := newStore()
	for _, payload := range []json.RawMessage{nil, json.RawMessage(`{"broken":`)} {
		if _, err := s.Enqueue(context.Background(), testTenant, testQueue, payload); err != domain.ErrInvalidPayload {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	}
}

func TestEnqueue_UnknownQueue(t *testing.T) {
	s := newStore()
	_, err := s.Enqueue(context.Background(), testTenant, "no_such_queue", json.RawMessage(`{}`))
	if !errors.Is(err, domain.ErrQueueNotFound) {
		t.Fatalf("expected ErrQueueNotFound, got %v", err)
	}
}

func TestEnqueue_UnknownTenant(t *testing.T) {
	s := newStore()
	_, err := s.Enqueue(context.Background(), "ghost", testQueue, json.RawMessage(`{}`))
	if !errors.Is(err, domain.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown, got %v", err)
	}
}

func TestClaim_OldestFirst(t *testing.T) {
	s := newStore()
	ids := enqueueN(t, s, 5)

	items, err := s.Claim(context.Background(), testTenant, testQueue, "worker-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, it := range items {
		if it.ID != ids[i] {
			t.Fatalf("expected oldest-first order, item %d has id %d want %d", i, it.ID, ids[i])
		}
		if it.Status != domain.StatusClaimed {
			t.Fatalf("expected claimed status, got %s", it.Status)
		}
		if it.ClaimedBy == nil || *it.ClaimedBy != "worker-1" {
			t.Fatalf("expected claimed_by=worker-1, got %v", it.ClaimedBy)
		}
	}
}

func TestClaim_EmptyQueueReturnsNoError(t *testing.T) {
	s := newStore()
	items, err := s.Claim(context.Background(), testTenant, testQueue, "worker-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty claim, got %d items", len(items))
	}
}

func TestClaim_InvalidCount(t *testing.T) {
	s := newStore()
	for _, count := range []int{0, -1} {
		if _, err := s.Claim(context.Background(), testTenant, testQueue, "w", count); err != domain.ErrInvalidClaimCount {
			t.Fatalf("count=%d: expected ErrInvalidClaimCount, got %v", count, err)
		}
	}
}

// Two consumers racing over 5 items: the first batch takes the 3 oldest,
// the second gets only the remaining 2, and no item appears twice.
func TestClaim_SequentialBatchesDoNotOverlap(t *testing.T) {
	s := newStore()
	enqueueN(t, s, 5)
	ctx := context.Background()

	first, err := s.Claim(ctx, testTenant, testQueue, "worker-1", 3)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	second, err := s.Claim(ctx, testTenant, testQueue, "worker-2", 3)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}

	if len(first) != 3 || len(second) != 2 {
		t.Fatalf("expected 3+2 items, got %d+%d", len(first), len(second))
	}

	seen := make(map[int64]bool)
	for _, it := range append(first, second...) {
		if seen[it.ID] {
			t.Fatalf("item %d claimed twice", it.ID)
		}
		seen[it.ID] = true
	}

	// All claimed: mark everything done and verify nothing is left open.
	for id := range seen {
		if err := s.MarkDone(ctx, testTenant, testQueue, id, "ok"); err != nil {
			t.Fatalf("mark done %d: %v", id, err)
		}
	}
	d, err := s.Depth(ctx, testTenant, testQueue)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if d.Pending != 0 || d.Claimed != 0 || d.Done != 5 {
		t.Fatalf("expected 0 pending / 0 claimed / 5 done, got %+v", d)
	}
}

// M concurrent claimers collectively receive each item at most once, and the
// union of returned items covers everything that was pending.
func TestClaim_ConcurrentNoDoubleClaim(t *testing.T) {
	const (
		total    = 200
		claimers = 16
		perClaim = 25
	)

	s := newStore()
	enqueueN(t, s, total)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]string)
		dupes   []int64
	)

	for c := 0; c < claimers; c++ {
		wg.Add(1)
		consumer := fmt.Sprintf("worker-%d", c)
		go func() {
			defer wg.Done()
			for {
				items, err := s.Claim(ctx, testTenant, testQueue, consumer, perClaim)
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if len(items) == 0 {
					return
				}
				mu.Lock()
				for _, it := range items {
					if prior, ok := claimed[it.ID]; ok {
						dupes = append(dupes, it.ID)
						_ = prior
					}
					claimed[it.ID] = consumer
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(dupes) != 0 {
		t.Fatalf("items claimed more than once: %v", dupes)
	}
	if len(claimed) != total {
		t.Fatalf("expected all %d items claimed exactly once, got %d", total, len(claimed))
	}
}

func TestMarkDone_Transitions(t *testing.T) {
	s := newStore()
	ids := enqueueN(t, s, 1)
	ctx := context.Background()

	// Pending item cannot be completed: it was never claimed.
	if err := s.MarkDone(ctx, testTenant, testQueue, ids[0], "early"); !errors.Is(err, domain.ErrItemNotClaimed) {
		t.Fatalf("expected ErrItemNotClaimed, got %v", err)
	}

	if _, err := s.Claim(ctx, testTenant, testQueue, "w", 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.MarkDone(ctx, testTenant, testQueue, ids[0], "sent"); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	// Second call is a documented no-op, not an error.
	if err := s.MarkDone(ctx, testTenant, testQueue, ids[0], "sent again"); err != nil {
		t.Fatalf("repeated mark done: %v", err)
	}

	// Done items can never be re-claimed.
	items, err := s.Claim(ctx, testTenant, testQueue, "w2", 10)
	if err != nil {
		t.Fatalf("claim after done: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("done item was re-claimed: %v", items)
	}
}

func TestMarkDone_NotFound(t *testing.T) {
	s := newStore()
	err := s.MarkDone(context.Background(), testTenant, testQueue, 42, "x")
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

// Items enqueued under tenant B are invisible to tenant A, even with an
// identical queue name.
func TestTenantIsolation(t *testing.T) {
	s := newStore()
	s.OnboardTenant("globex", []string{testQueue})
	ctx := context.Background()

	if _, err := s.Enqueue(ctx, "globex", testQueue, json.RawMessage(`{"owner":"globex"}`)); err != nil {
		t.Fatalf("enqueue globex: %v", err)
	}

	items, err := s.Claim(ctx, testTenant, testQueue, "w", 10)
	if err != nil {
		t.Fatalf("claim acme: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("tenant acme claimed tenant globex's items: %v", items)
	}
}

// After teardown the storage domain is gone; re-onboarding yields an empty
// queue with no residue from the prior incarnation.
func TestTeardownThenReonboard(t *testing.T) {
	s := newStore()
	enqueueN(t, s, 3)
	ctx := context.Background()

	s.TeardownTenant(testTenant)
	if _, err := s.Enqueue(ctx, testTenant, testQueue, json.RawMessage(`{}`)); !errors.Is(err, domain.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown after teardown, got %v", err)
	}
	if _, err := s.Claim(ctx, testTenant, testQueue, "w", 1); !errors.Is(err, domain.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown after teardown, got %v", err)
	}

	s.OnboardTenant(testTenant, []string{testQueue})
	d, err := s.Depth(ctx, testTenant, testQueue)
	if err != nil {
		t.Fatalf("depth after re-onboard: %v", err)
	}
	if d.Pending != 0 || d.Claimed != 0 || d.Done != 0 {
		t.Fatalf("expected empty queue after re-onboard, got %+v", d)
	}
}
