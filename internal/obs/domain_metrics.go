package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DiscountCalculationsTotal counts discount engine results by winning rule.
	DiscountCalculationsTotal *prometheus.CounterVec
	// VariantBatchResultsTotal counts batch variant creation outcomes per row.
	VariantBatchResultsTotal *prometheus.CounterVec
	// CatalogCacheTotal counts variant cache lookups by outcome.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DiscountCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_calculations_total",
			Help:      "Count of discount calculations by winning rule (none, fixed, tiered).",
		}, []string{"source"})
		VariantBatchResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_batch_results_total",
			Help:      "Count of batch variant rows by result.",
		}, []string{"result"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Variant cache lookups by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, DiscountCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, VariantBatchResultsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VariantBatchResultsTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
	})
}

// ObserveDiscount records a discount result. Safe to call before registration.
func ObserveDiscount(source string) {
	if DiscountCalculationsTotal == nil {
		return
	}
	DiscountCalculationsTotal.WithLabelValues(source).Inc()
}

// ObserveBatch records batch creation counts. Safe to call before registration.
func ObserveBatch(created, failed int) {
	if VariantBatchResultsTotal == nil {
		return
	}
	VariantBatchResultsTotal.WithLabelValues("created").Add(float64(created))
	VariantBatchResultsTotal.WithLabelValues("failed").Add(float64(failed))
}

// ObserveCache records a cache lookup outcome (hit, miss, error).
func ObserveCache(result string) {
	if CatalogCacheTotal == nil {
		return
	}
	CatalogCacheTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
