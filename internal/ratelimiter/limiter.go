package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/notifyhub/tenantq/internal/domain"
)

// TierLookup resolves a tenant's tier from the control plane. Lookup
// failures fall back to the small-tier rate and are not cached, so a tenant
// mid-onboarding is throttled conservatively rather than rejected.
type TierLookup func(ctx context.Context, tenantID string) (domain.Tier, error)

// TenantLimiters holds one token bucket per tenant, sized by tier.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type TenantLimiters struct {
	rates  map[domain.Tier]int
	lookup TierLookup

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates TenantLimiters with per-second rates keyed by tier.
func New(rates map[domain.Tier]int, lookup TierLookup) *TenantLimiters {
	copied := make(map[domain.Tier]int, len(rates))
	for tier, r := range rates {
		copied[tier] = r
	}
	return &TenantLimiters{
		rates:    copied,
		lookup:   lookup,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the tenant's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (tl *TenantLimiters) Wait(ctx context.Context, tenantID string) error {
	lim, err := tl.limiterFor(ctx, tenantID)
	if err != nil {
		return err
	}
	return lim.Wait(ctx)
}

func (tl *TenantLimiters) limiterFor(ctx context.Context, tenantID string) (*rate.Limiter, error) {
	tl.mu.Lock()
	lim, ok := tl.limiters[tenantID]
	tl.mu.Unlock()
	if ok {
		return lim, nil
	}

	tier, err := tl.lookup(ctx, tenantID)
	if err != nil {
		// Unknown or unreadable tenant: throttle at the smallest rate
		// without caching, the storage layer decides whether it exists.
		r := tl.rateFor(domain.TierSmall)
		return rate.NewLimiter(rate.Limit(r), r), nil
	}

	r := tl.rateFor(tier)
	fresh := rate.NewLimiter(rate.Limit(r), r)

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if existing, ok := tl.limiters[tenantID]; ok {
		return existing, nil
	}
	tl.limiters[tenantID] = fresh
	return fresh, nil
}

func (tl *TenantLimiters) rateFor(tier domain.Tier) int {
	if r, ok := tl.rates[tier]; ok && r > 0 {
		return r
	}
	return 1
}

// Evict drops the cached limiter for a tenant, e.g. after teardown or a
// tier change.
func (tl *TenantLimiters) Evict(tenantID string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	delete(tl.limiters, tenantID)
}
