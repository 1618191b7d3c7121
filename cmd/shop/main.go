package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"PokeStore/internal/catalog"
	"PokeStore/internal/commerce"
	"PokeStore/internal/config"
	"PokeStore/internal/pricing"
	"PokeStore/internal/shop"
	"PokeStore/internal/store"
	"PokeStore/pkg/kit"
)

func main() {
	service := "shop"

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal("store open failed", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	defer closeBackend()

	st := store.New(backend, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := shop.NewCommerceMetrics(reg)
	st.Subscribe(metrics.ObserveEvent)

	pricer := pricing.NewPricer(nil)
	conv := pricing.NewConverter(pricing.NewRateClient(cfg.RateAPIURL, cfg.HTTPTimeout), log)
	conv.OnFallback = metrics.ObserveRateFallback

	manager := commerce.NewManager(st, conv, pricer, log)

	loader := catalog.NewLoader(catalog.NewClient(cfg.ItemAPIURL, cfg.HTTPTimeout, pricer), manager, log)
	loader.OnFetchFailed = metrics.ObserveFetchFailure

	s := &shop.Server{
		Store:   st,
		Manager: manager,
		Loader:  loader,
		Metrics: metrics,
		Log:     log,
	}

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		log.Fatal("bad trusted proxies", zap.Error(err))
	}

	h := shop.NewHandler(s, shop.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     reg,
		MetricsToken: cfg.MetricsToken,
		FundsLimiter: kit.NewIPRateLimiter(cfg.FundsLimitPerMin, time.Minute).TrustProxies(proxies...),
	})

	if err := kit.RunHTTPServer(ctx, cfg.Addr(), h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg config.Config) (store.Backend, func(), error) {
	var dialect store.Dialect
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemBackend(), func() {}, nil
	case config.DriverSQLite:
		dialect = store.SQLite
	case config.DriverPostgres:
		dialect = store.Postgres
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	b, err := store.OpenSQL(ctx, dialect, cfg.StoreDSN)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}
