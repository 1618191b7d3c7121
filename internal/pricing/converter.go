package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource looks up a live exchange rate.
type RateSource interface {
	Rate(ctx context.Context, from, to Currency) (decimal.Decimal, error)
}

// fallbackRates is used whenever the live rate lookup fails.
var fallbackRates = map[Currency]map[Currency]string{
	MXN: {USD: "0.06", EUR: "0.055", JPY: "8.5", GBP: "0.047", MXN: "1"},
	USD: {MXN: "16.67", EUR: "0.92", JPY: "141.67", GBP: "0.78", USD: "1"},
	EUR: {MXN: "18.18", USD: "1.09", JPY: "154.55", GBP: "0.85", EUR: "1"},
	JPY: {MXN: "0.118", USD: "0.007", EUR: "0.006", GBP: "0.0055", JPY: "1"},
	GBP: {MXN: "21.28", USD: "1.28", EUR: "1.18", JPY: "181.82", GBP: "1"},
}

// FallbackRate returns the static rate for a pair, 1 for pairs outside the table.
func FallbackRate(from, to Currency) decimal.Decimal {
	if s, ok := fallbackRates[from][to]; ok {
		return decimal.RequireFromString(s)
	}
	return decimal.NewFromInt(1)
}

type Converter struct {
	Rates RateSource
	Log   *zap.Logger

	// OnFallback, when set, is called each time the static table is used.
	OnFallback func(from, to Currency)
}

func NewConverter(rates RateSource, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{Rates: rates, Log: log}
}

// Convert never fails: a failed lookup, or a live rate that is not
// positive, degrades to the fallback table.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to Currency) decimal.Decimal {
	if from == to {
		return amount
	}
	return amount.Mul(c.rate(ctx, from, to))
}

func (c *Converter) rate(ctx context.Context, from, to Currency) decimal.Decimal {
	if c.Rates != nil {
		r, err := c.Rates.Rate(ctx, from, to)
		if err == nil && !r.IsPositive() {
			err = fmt.Errorf("%w: rate %s is not positive", ErrRateUnavailable, r)
		}
		if err == nil {
			return r
		}
		c.Log.Warn("exchange rate lookup failed, using fallback",
			zap.Error(err),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	if c.OnFallback != nil {
		c.OnFallback(from, to)
	}
	return FallbackRate(from, to)
}
