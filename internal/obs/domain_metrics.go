package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingCalculationsTotal counts pricing engine invocations by mode and buyer type.
	PricingCalculationsTotal *prometheus.CounterVec
	// PricingSavingsPercent records the savings percentage of successful calculations.
	PricingSavingsPercent *prometheus.HistogramVec
	// BrokerProfileLookupsTotal counts broker profile resolutions by source and outcome.
	BrokerProfileLookupsTotal *prometheus.CounterVec
	// QuoteRecordsTotal counts quote audit records by stage and outcome.
	QuoteRecordsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_calculations_total",
			Help:      "Count of pricing calculations by mode, buyer type and result.",
		}, []string{"mode", "buyer", "result"})
		PricingSavingsPercent = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_savings_percent",
			Help:      "Distribution of savings percentage applied to calculated quotes.",
			Buckets:   []float64{0, 2.5, 5, 10, 15, 20, 30, 50, 75, 100},
		}, []string{"buyer"})
		BrokerProfileLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_profile_lookups_total",
			Help:      "Count of broker profile lookups by source and result.",
		}, []string{"source", "result"})
		QuoteRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_records_total",
			Help:      "Count of quote audit records by stage and result.",
		}, []string{"stage", "result"})

		mustRegisterCollector(reg, PricingCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, PricingSavingsPercent, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				PricingSavingsPercent = v
			}
		})
		mustRegisterCollector(reg, BrokerProfileLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BrokerProfileLookupsTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteRecordsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteRecordsTotal = v
			}
		})
	})
}

// RecordPricing increments the calculation counter when metrics are registered.
func RecordPricing(mode, buyer, result string) {
	if PricingCalculationsTotal == nil {
		return
	}
	PricingCalculationsTotal.WithLabelValues(mode, buyer, result).Inc()
}

// ObserveSavings records the savings percentage for a buyer type.
func ObserveSavings(buyer string, percent float64) {
	if PricingSavingsPercent == nil {
		return
	}
	PricingSavingsPercent.WithLabelValues(buyer).Observe(percent)
}

// RecordProfileLookup increments the broker profile lookup counter.
func RecordProfileLookup(source, result string) {
	if BrokerProfileLookupsTotal == nil {
		return
	}
	BrokerProfileLookupsTotal.WithLabelValues(source, result).Inc()
}

// RecordQuote increments the quote record counter.
func RecordQuote(stage, result string) {
	if QuoteRecordsTotal == nil {
		return
	}
	QuoteRecordsTotal.WithLabelValues(stage, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
