package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsEnqueued  *prometheus.CounterVec
	ItemsClaimed   *prometheus.CounterVec
	ItemsCompleted *prometheus.CounterVec
	ClaimBatchSize prometheus.Histogram

	TenantsOnboarded prometheus.Counter
	TenantsTornDown  prometheus.Counter
	OnboardingSteps  *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_enqueued_total",
			Help: "Total number of items written to a queue.",
		}, []string{"queue"}),

		ItemsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_claimed_total",
			Help: "Total number of items handed to consumers.",
		}, []string{"queue"}),

		ItemsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_items_completed_total",
			Help: "Total number of items marked done.",
		}, []string{"queue"}),

		ClaimBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_claim_batch_size",
			Help:    "Number of items returned per claim call.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),

		TenantsOnboarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenants_onboarded_total",
			Help: "Total number of successfully onboarded tenants.",
		}),

		TenantsTornDown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenants_torn_down_total",
			Help: "Total number of successfully torn-down tenants.",
		}),

		OnboardingSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_onboarding_steps_total",
			Help: "Completed onboarding steps, labelled by step name.",
		}, []string{"step"}),
	}

	reg.MustRegister(
		m.ItemsEnqueued,
		m.ItemsClaimed,
		m.ItemsCompleted,
		m.ClaimBatchSize,
		m.TenantsOnboarded,
		m.TenantsTornDown,
		m.OnboardingSteps,
	)

	return m
}

// QueueHooks returns the metric callbacks expected by service.Hooks.
// Centralises the prometheus observation calls so the service stays
// import-free.
func (m *Metrics) QueueHooks() (
	onEnqueued func(queue string),
	onClaimed func(queue string, count int),
	onCompleted func(queue string),
) {
	onEnqueued = func(queue string) {
		m.ItemsEnqueued.WithLabelValues(queue).Inc()
	}
	onClaimed = func(queue string, count int) {
		m.ItemsClaimed.WithLabelValues(queue).Add(float64(count))
		m.ClaimBatchSize.Observe(float64(count))
	}
	onCompleted = func(queue string) {
		m.ItemsCompleted.WithLabelValues(queue).Inc()
	}
	return
}

// LifecycleHooks returns the metric callbacks used by the tenant manager.
func (m *Metrics) LifecycleHooks() (
	onStep func(step string),
	onOnboarded func(),
	onTornDown func(),
) {
	onStep = func(step string) { m.OnboardingSteps.WithLabelValues(step).Inc() }
	onOnboarded = func() { m.TenantsOnboarded.Inc() }
	onTornDown = func() { m.TenantsTornDown.Inc() }
	return
}
