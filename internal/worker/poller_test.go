package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/queuestore"
	"github.com/notifyhub/tenantq/internal/ratelimiter"
	"github.com/notifyhub/tenantq/internal/routing"
	"github.com/notifyhub/tenantq/internal/service"
	"github.com/notifyhub/tenantq/internal/worker"
)

func newPipeline(t *testing.T) (*service.QueueService, *queuestore.MemoryStore) {
	t.Helper()
	store := queuestore.NewMemoryStore()
	store.OnboardTenant("acme", routing.Default().Queues())
	limiter := ratelimiter.New(
		map[domain.Tier]int{domain.TierSmall: 1000},
		func(context.Context, string) (domain.Tier, error) { return domain.TierSmall, nil },
	)
	return service.NewQueueService(routing.Default(), store, limiter, service.Hooks{}, zap.NewNop()), store
}

func TestPoller_ProcessesAndCompletes(t *testing.T) {
	svc, store := newPipeline(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Publish(ctx, routing.EventEmailTemplateHasBeenPopulated, "acme", json.RawMessage(`{"to":"a@b.c"}`)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	var (
		mu      sync.Mutex
		handled []int64
	)
	done := make(chan struct{})
	handler := func(_ context.Context, item domain.QueueItem) (string, error) {
		mu.Lock()
		handled = append(handled, item.ID)
		if len(handled) == 3 {
			close(done)
		}
		mu.Unlock()
		return "sent", nil
	}

	p := worker.NewPoller(svc, routing.ChannelEmailSender, "acme", 10, 5*time.Millisecond, handler, zap.NewNop())
	runCtx, cancel := context.WithCancel(ctx)
	go p.Run(runCtx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not process all items in time")
	}
	cancel()

	// Give Complete calls a moment to land after the last handler returns.
	deadline := time.Now().Add(time.Second)
	for {
		d, err := store.Depth(ctx, "acme", routing.QueueEmailsToBeSent)
		if err != nil {
			t.Fatalf("depth: %v", err)
		}
		if d.Done == 3 && d.Claimed == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected all items done, got %+v", d)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoller_HandlerErrorLeavesItemClaimed(t *testing.T) {
	svc, store := newPipeline(t)
	ctx := context.Background()

	if _, err := svc.Publish(ctx, routing.EventEmailTemplateHasBeenPopulated, "acme", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	attempted := make(chan struct{})
	var once sync.Once
	handler := func(context.Context, domain.QueueItem) (string, error) {
		once.Do(func() { close(attempted) })
		return "", errors.New("smtp refused")
	}

	p := worker.NewPoller(svc, routing.ChannelEmailSender, "acme", 10, 5*time.Millisecond, handler, zap.NewNop())
	runCtx, cancel := context.WithCancel(ctx)
	go p.Run(runCtx)

	select {
	case <-attempted:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
	cancel()
	time.Sleep(20 * time.Millisecond)

	d, err := store.Depth(ctx, "acme", routing.QueueEmailsToBeSent)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if d.Claimed != 1 || d.Done != 0 {
		t.Fatalf("expected item to stay claimed after handler error, got %+v", d)
	}
}

func TestPoller_StopsOnCancel(t *testing.T) {
	svc, _ := newPipeline(t)

	p := worker.NewPoller(svc, routing.ChannelEmailSender, "acme", 1, time.Millisecond,
		func(context.Context, domain.QueueItem) (string, error) { return "", nil },
		zap.NewNop())

	runCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(runCtx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
