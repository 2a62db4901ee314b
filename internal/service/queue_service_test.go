package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/queuestore"
	"github.com/notifyhub/tenantq/internal/ratelimiter"
	"github.com/notifyhub/tenantq/internal/routing"
	"github.com/notifyhub/tenantq/internal/service"
)

func newService() (*service.QueueService, *queuestore.MemoryStore) {
	store := queuestore.NewMemoryStore()
	store.OnboardTenant("acme", routing.Default().Queues())

	limiter := ratelimiter.New(
		map[domain.Tier]int{domain.TierSmall: 1000, domain.TierMedium: 1000, domain.TierLarge: 1000},
		func(context.Context, string) (domain.Tier, error) { return domain.TierSmall, nil },
	)

	svc := service.NewQueueService(routing.Default(), store, limiter, service.Hooks{}, zap.NewNop())
	return svc, store
}

var payload = json.RawMessage(`{"activity":"invoice.created","user":"u-17"}`)

func TestPublish_RoutesToDestinationQueue(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	id, err := svc.Publish(ctx, routing.EventEmailTemplateHasBeenPopulated, "acme", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero item id")
	}

	d, err := store.Depth(ctx, "acme", routing.QueueEmailsToBeSent)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if d.Pending != 1 {
		t.Fatalf("expected 1 pending item in emails_to_be_sent, got %+v", d)
	}
}

func TestPublish_UnknownEventType(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Publish(context.Background(), "InvoicePrinted", "acme", payload)
	if !errors.Is(err, domain.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestPublish_MissingTenant(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Publish(context.Background(), routing.EventNotificationInitialized, "", payload)
	if !errors.Is(err, domain.ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestPublish_TenantWithoutDomain(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Publish(context.Background(), routing.EventNotificationInitialized, "ghost", payload)
	if !errors.Is(err, domain.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown, got %v", err)
	}
}

func TestPoll_UnknownChannel(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Poll(context.Background(), "mystery-service", "acme", 1)
	if !errors.Is(err, domain.ErrUnknownConsumerChannel) {
		t.Fatalf("expected ErrUnknownConsumerChannel, got %v", err)
	}
}

func TestPoll_InvalidCount(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Poll(context.Background(), routing.ChannelEmailSender, "acme", 0)
	if !errors.Is(err, domain.ErrInvalidClaimCount) {
		t.Fatalf("expected ErrInvalidClaimCount, got %v", err)
	}
}

// End-to-end pipeline walk: enqueue 5 activity events, claim 3 then the
// remaining 2, complete all 5, and verify the queue drains.
func TestPipelineScenario(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Publish(ctx, routing.EventNotificationInitialized, "acme", payload); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	first, err := svc.Poll(ctx, routing.ChannelNotificationDispatcher, "acme", 3)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first))
	}

	second, err := svc.Poll(ctx, routing.ChannelNotificationDispatcher, "acme", 3)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected the remaining 2 items, got %d", len(second))
	}

	for _, it := range append(first, second...) {
		if err := svc.Complete(ctx, routing.ChannelNotificationDispatcher, "acme", it.ID, "processed"); err != nil {
			t.Fatalf("complete %d: %v", it.ID, err)
		}
	}

	depths, err := svc.Depths(ctx, "acme")
	if err != nil {
		t.Fatalf("depths: %v", err)
	}
	d := depths[routing.QueueUnprocessedNotifications]
	if d.Pending != 0 || d.Claimed != 0 || d.Done != 5 {
		t.Fatalf("expected drained queue with 5 done, got %+v", d)
	}
}

// A consumer that finishes one stage re-publishes into the next; the engine
// itself performs no routing between queues.
func TestStageChaining(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	if _, err := svc.Publish(ctx, routing.EventEmailTemplateShouldPopulate, "acme", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	items, err := svc.Poll(ctx, routing.ChannelTemplatePopulator, "acme", 1)
	if err != nil || len(items) != 1 {
		t.Fatalf("poll: items=%d err=%v", len(items), err)
	}

	// Downstream: populated email goes to the send queue, original is done.
	rendered := json.RawMessage(`{"html":"<p>hello</p>","to":"user@example.com"}`)
	if _, err := svc.Publish(ctx, routing.EventEmailTemplateHasBeenPopulated, "acme", rendered); err != nil {
		t.Fatalf("chained publish: %v", err)
	}
	if err := svc.Complete(ctx, routing.ChannelTemplatePopulator, "acme", items[0].ID, "populated"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	d, _ := store.Depth(ctx, "acme", routing.QueueEmailsToBeSent)
	if d.Pending != 1 {
		t.Fatalf("expected 1 pending item downstream, got %+v", d)
	}
}

func TestComplete_ErrorsPassThrough(t *testing.T) {
	svc, _ := newService()
	err := svc.Complete(context.Background(), routing.ChannelEmailSender, "acme", 999, "x")
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestHooksInvoked(t *testing.T) {
	store := queuestore.NewMemoryStore()
	store.OnboardTenant("acme", routing.Default().Queues())

	var enqueued, completed []string
	var claimedCount int
	hooks := service.Hooks{
		OnEnqueued:  func(q string) { enqueued = append(enqueued, q) },
		OnClaimed:   func(q string, n int) { claimedCount += n },
		OnCompleted: func(q string) { completed = append(completed, q) },
	}
	svc := service.NewQueueService(routing.Default(), store, nil, hooks, zap.NewNop())

	ctx := context.Background()
	_, _ = svc.Publish(ctx, routing.EventNotificationInitialized, "acme", payload)
	items, _ := svc.Poll(ctx, routing.ChannelNotificationDispatcher, "acme", 5)
	_ = svc.Complete(ctx, routing.ChannelNotificationDispatcher, "acme", items[0].ID, "ok")

	if len(enqueued) != 1 || enqueued[0] != routing.QueueUnprocessedNotifications {
		t.Fatalf("enqueue hook: %v", enqueued)
	}
	if claimedCount != 1 {
		t.Fatalf("claim hook count: %d", claimedCount)
	}
	if len(completed) != 1 {
		t.Fatalf("complete hook: %v", completed)
	}
}
