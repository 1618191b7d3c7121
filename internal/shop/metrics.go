package shop

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"PokeStore/internal/commerce"
	"PokeStore/internal/pricing"
	"PokeStore/internal/store"
)

type CommerceMetrics struct {
	StateChanges  *prometheus.CounterVec
	Checkouts     *prometheus.CounterVec
	FetchFailures prometheus.Counter
	RateFallbacks *prometheus.CounterVec
}

func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	m := &CommerceMetrics{
		StateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_state_changes_total",
				Help: "Store changes by event kind.",
			},
			[]string{"kind"},
		),
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_checkouts_total",
				Help: "Checkout attempts by result.",
			},
			[]string{"result"},
		),
		FetchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shop_item_fetch_failures_total",
				Help: "Items skipped because the item service failed.",
			},
		),
		RateFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_rate_fallbacks_total",
				Help: "Conversions that used the static rate table.",
			},
			[]string{"from", "to"},
		),
	}

	reg.MustRegister(m.StateChanges, m.Checkouts, m.FetchFailures, m.RateFallbacks)
	return m
}

// ObserveEvent is a store subscriber.
func (m *CommerceMetrics) ObserveEvent(ev store.Event) {
	m.StateChanges.WithLabelValues(string(ev.Kind)).Inc()
}

func (m *CommerceMetrics) ObserveCheckout(err error) {
	m.Checkouts.WithLabelValues(checkoutResult(err)).Inc()
}

func (m *CommerceMetrics) ObserveFetchFailure(int, error) {
	m.FetchFailures.Inc()
}

func (m *CommerceMetrics) ObserveRateFallback(from, to pricing.Currency) {
	m.RateFallbacks.WithLabelValues(string(from), string(to)).Inc()
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, commerce.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, commerce.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, commerce.ErrCartChanged):
		return "cart_changed"
	case errors.Is(err, commerce.ErrItemNotCached):
		return "item_not_cached"
	default:
		return "error"
	}
}
