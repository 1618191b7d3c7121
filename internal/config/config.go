// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	StoreDSN    string `env:"STORE_DSN"`

	ItemAPIURL  string        `env:"ITEM_API_URL" envDefault:"https://pokeapi.co/api/v2"`
	RateAPIURL  string        `env:"RATE_API_URL" envDefault:"https://api.exchangerate-api.com/v4/latest"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"5s"`

	MetricsToken     string `env:"METRICS_TOKEN"`
	FundsLimitPerMin int    `env:"FUNDS_LIMIT_PER_MIN" envDefault:"30"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For the
	// funds limiter believes. Empty means the header is ignored.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for driver %q", c.StoreDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	for name, raw := range map[string]string{"ITEM_API_URL": c.ItemAPIURL, "RATE_API_URL": c.RateAPIURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s is not an absolute url: %q", name, raw))
		}
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.FundsLimitPerMin < 0 {
		errs = append(errs, errors.New("FUNDS_LIMIT_PER_MIN must not be negative"))
	}

	if _, err := c.ProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ProxyPrefixes parses TrustedProxies; a bare address becomes a single-host prefix.
func (c Config) ProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an address or CIDR", raw)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (c Config) Addr() string { return ":" + c.Port }
