package ratelimiter

import (
	"context"
	"errors"
	"testing"

	"github.com/notifyhub/tenantq/internal/domain"
)

var testRates = map[domain.Tier]int{
	domain.TierSmall:  10,
	domain.TierMedium: 100,
	domain.TierLarge:  1000,
}

func staticLookup(tier domain.Tier) TierLookup {
	return func(context.Context, string) (domain.Tier, error) {
		return tier, nil
	}
}

func TestWait_GrantsTokenImmediately(t *testing.T) {
	tl := New(testRates, staticLookup(domain.TierLarge))
	if err := tl.Wait(context.Background(), "acme"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLimiterFor_CachedPerTenant(t *testing.T) {
	calls := 0
	tl := New(testRates, func(context.Context, string) (domain.Tier, error) {
		calls++
		return domain.TierMedium, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := tl.limiterFor(ctx, "acme"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one tier lookup for a cached tenant, got %d", calls)
	}
}

func TestLimiterFor_LookupFailureNotCached(t *testing.T) {
	lookupErr := errors.New("control plane down")
	failing := true
	tl := New(testRates, func(context.Context, string) (domain.Tier, error) {
		if failing {
			return "", lookupErr
		}
		return domain.TierLarge, nil
	})

	ctx := context.Background()
	lim, err := tl.limiterFor(ctx, "acme")
	if err != nil {
		t.Fatalf("lookup failure must fall back, got error: %v", err)
	}
	if got := int(lim.Limit()); got != testRates[domain.TierSmall] {
		t.Fatalf("expected small-tier fallback rate %d, got %d", testRates[domain.TierSmall], got)
	}

	// Once the control plane recovers, the real tier applies and is cached.
	failing = false
	lim, err = tl.limiterFor(ctx, "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := int(lim.Limit()); got != testRates[domain.TierLarge] {
		t.Fatalf("expected large-tier rate %d after recovery, got %d", testRates[domain.TierLarge], got)
	}
}

func TestEvict(t *testing.T) {
	calls := 0
	tl := New(testRates, func(context.Context, string) (domain.Tier, error) {
		calls++
		return domain.TierSmall, nil
	})

	ctx := context.Background()
	_, _ = tl.limiterFor(ctx, "acme")
	tl.Evict("acme")
	_, _ = tl.limiterFor(ctx, "acme")

	if calls != 2 {
		t.Fatalf("expected lookup after eviction, got %d calls", calls)
	}
}
