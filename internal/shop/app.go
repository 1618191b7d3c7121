// Package shop is the HTTP face of the store: a JSON API over the commerce
// manager and the catalog loader, a websocket change feed and the commerce
// metrics.
package shop

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"PokeStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	// MetricsToken guards /metrics. Empty closes the endpoint.
	MetricsToken string
	// FundsLimiter throttles POST /wallet/funds per client IP. Nil disables it.
	FundsLimiter *kit.IPRateLimiter
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.RouteLabel))
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/currencies", s.currencies)

	r.Route("/items", func(ir chi.Router) {
		ir.Get("/", s.listItems)
		ir.Get("/{id}", s.getItem)
	})

	r.Route("/wallet", func(wr chi.Router) {
		wr.Get("/", s.getWallet)
		funds := wr.With()
		if deps.FundsLimiter != nil {
			funds = wr.With(deps.FundsLimiter.Middleware)
		}
		funds.Post("/funds", s.addFunds)
	})

	r.Route("/cart", func(cr chi.Router) {
		cr.Get("/", s.getCart)
		cr.Delete("/", s.clearCart)
		cr.Post("/items", s.addToCart)
		cr.Delete("/items/{id}", s.removeFromCart)
	})

	r.Post("/checkout", s.checkout)
	r.Get("/collection", s.collection)
	r.Delete("/state", s.clearState)
	r.Get("/events", s.events)

	return r
}
