package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ScansTotal counts scan submissions by outcome (added, duplicate, not_found).
	ScansTotal *prometheus.CounterVec
	// BillsOpenedTotal counts billing sessions opened.
	BillsOpenedTotal prometheus.Counter
	// BillsSettledTotal counts settle operations.
	BillsSettledTotal prometheus.Counter
	// BillAmount records settled bill totals in minor currency units.
	BillAmount prometheus.Histogram
	// ProductsRegisteredTotal counts products added to the catalog.
	ProductsRegisteredTotal prometheus.Counter
	// PriceChangesTotal counts price modifications.
	PriceChangesTotal prometheus.Counter
	// PromosClearedTotal counts promo pairs removed after expiry.
	PromosClearedTotal prometheus.Counter
	// CatalogCacheHits counts lookups served from the redis cache.
	CatalogCacheHits prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Count of scan submissions by outcome.",
		}, []string{"outcome"})
		BillsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_opened_total",
			Help:      "Number of billing sessions opened.",
		})
		BillsSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_settled_total",
			Help:      "Number of settle operations performed.",
		})
		BillAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bill_amount_minor_units",
			Help:      "Settled bill totals in minor currency units.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		})
		ProductsRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_registered_total",
			Help:      "Number of products added to the catalog.",
		})
		PriceChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_changes_total",
			Help:      "Number of price modifications applied.",
		})
		PromosClearedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promos_cleared_total",
			Help:      "Number of promo price pairs removed after expiry.",
		})
		CatalogCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_hits_total",
			Help:      "Number of product lookups served from cache.",
		})

		mustRegisterCollector(reg, ScansTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ScansTotal = v
			}
		})
		mustRegisterCollector(reg, BillsOpenedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BillsOpenedTotal = v
			}
		})
		mustRegisterCollector(reg, BillsSettledTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BillsSettledTotal = v
			}
		})
		mustRegisterCollector(reg, BillAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				BillAmount = v
			}
		})
		mustRegisterCollector(reg, ProductsRegisteredTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ProductsRegisteredTotal = v
			}
		})
		mustRegisterCollector(reg, PriceChangesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PriceChangesTotal = v
			}
		})
		mustRegisterCollector(reg, PromosClearedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PromosClearedTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheHits, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CatalogCacheHits = v
			}
		})
	})
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
