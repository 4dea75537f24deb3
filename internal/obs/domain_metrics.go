package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts checkout attempts by outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// CartClearWarningsTotal counts orders whose cart could not be cleared.
	CartClearWarningsTotal prometheus.Counter
	// CartClearRetriesTotal counts background cart clear retries by outcome.
	CartClearRetriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement attempts by result.",
		}, []string{"result"})
		CartClearWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_clear_warnings_total",
			Help:      "Orders placed whose cart could not be cleared in-request.",
		})
		CartClearRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_clear_retries_total",
			Help:      "Background cart clear attempts by result.",
		}, []string{"result"})

		CartMutationsTotal = registerOrReuse(reg, CartMutationsTotal)
		OrdersPlacedTotal = registerOrReuse(reg, OrdersPlacedTotal)
		CartClearWarningsTotal = registerOrReuse(reg, CartClearWarningsTotal)
		CartClearRetriesTotal = registerOrReuse(reg, CartClearRetriesTotal)
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
		panic(fmt.Errorf("register metric: %w", err))
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCartMutation records a cart mutation outcome. No-op until registered.
func ObserveCartMutation(op string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveOrderPlaced records a checkout outcome. No-op until registered.
func ObserveOrderPlaced(result string) {
	if OrdersPlacedTotal == nil {
		return
	}
	OrdersPlacedTotal.WithLabelValues(result).Inc()
}

// ObserveCartClearWarning records an order whose cart was left behind.
func ObserveCartClearWarning() {
	if CartClearWarningsTotal == nil {
		return
	}
	CartClearWarningsTotal.Inc()
}

// ObserveCartClearRetry records a background clear attempt.
func ObserveCartClearRetry(err error) {
	if CartClearRetriesTotal == nil {
		return
	}
	CartClearRetriesTotal.WithLabelValues(resultLabel(err)).Inc()
}
