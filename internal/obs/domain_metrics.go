package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingRequestsTotal counts bidding-rules computations by outcome.
	PricingRequestsTotal *prometheus.CounterVec
	// PricedOffersPerResponse records how many offers a pricing response carries.
	PricedOffersPerResponse prometheus.Histogram
	// OffersSkippedTotal counts offers dropped while aggregating, by reason.
	OffersSkippedTotal *prometheus.CounterVec
	// SelectionValidationsTotal counts validate-selection outcomes.
	SelectionValidationsTotal *prometheus.CounterVec
	// CheckoutFallbackTotal counts checkout instructions generated through the assisted fallback.
	CheckoutFallbackTotal *prometheus.CounterVec
	// SelectionTasksTotal counts selection analytics task outcomes.
	SelectionTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_requests_total",
			Help:      "Count of bidding-rules computations by outcome.",
		}, []string{"result"}))
		PricedOffersPerResponse = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_offers_per_response",
			Help:      "Number of priced offers returned per pricing response.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}))
		OffersSkippedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_skipped_total",
			Help:      "Count of vendor offers excluded from pricing responses.",
		}, []string{"reason"}))
		SelectionValidationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_validations_total",
			Help:      "Count of offer selection validations by outcome.",
		}, []string{"result"}))
		CheckoutFallbackTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_fallback_total",
			Help:      "Count of checkout instructions served by the assisted fallback.",
		}, []string{"integration_level"}))
		SelectionTasksTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_tasks_total",
			Help:      "Count of selection analytics task outcomes.",
		}, []string{"stage", "result"}))
	})
}

// IncCounter increments a labelled counter when domain metrics are registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
