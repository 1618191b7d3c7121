package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30, cfg.FundsLimitPerMin)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_DSN", "shop.db")
	t.Setenv("HTTP_TIMEOUT", "250ms")
	t.Setenv("METRICS_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "shop.db", cfg.StoreDSN)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTPTimeout)
	assert.Equal(t, "tok", cfg.MetricsToken)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestValidate(t *testing.T) {
	base, err := Load()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "redis" }, want: "unknown STORE_DRIVER"},
		{name: "missing dsn", mutate: func(c *Config) { c.StoreDriver, c.StoreDSN = DriverPostgres, "" }, want: "STORE_DSN is required"},
		{name: "relative url", mutate: func(c *Config) { c.ItemAPIURL = "pokeapi" }, want: "ITEM_API_URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, want: "HTTP_TIMEOUT"},
		{name: "negative limit", mutate: func(c *Config) { c.FundsLimitPerMin = -1 }, want: "FUNDS_LIMIT_PER_MIN"},
		{name: "bad proxy", mutate: func(c *Config) { c.TrustedProxies = []string{"gateway"} }, want: "TRUSTED_PROXIES"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	memory := base
	memory.StoreDriver, memory.StoreDSN = DriverMemory, ""
	assert.NoError(t, memory.Validate())
}

func TestProxyPrefixes(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.4")

	cfg, err := Load()
	require.NoError(t, err)

	got, err := cfg.ProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "192.168.1.4/32", got[1].String())
}
