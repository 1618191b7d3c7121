// Package pricing owns the store's currency set, the random price assigned to
// every fetched item and conversion between currencies.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	MXN Currency = "MXN"
	USD Currency = "USD"
	EUR Currency = "EUR"
	JPY Currency = "JPY"
	GBP Currency = "GBP"
)

// WalletCurrency is the reference currency every new wallet is opened in.
const WalletCurrency = MXN

var ErrUnknownCurrency = errors.New("unknown currency")

type CurrencyInfo struct {
	Code   Currency `json:"code"`
	Name   string   `json:"name"`
	Symbol string   `json:"symbol"`
}

var currencies = []CurrencyInfo{
	{Code: MXN, Name: "Mexican Peso", Symbol: "$"},
	{Code: USD, Name: "US Dollar", Symbol: "$"},
	{Code: EUR, Name: "Euro", Symbol: "€"},
	{Code: JPY, Name: "Japanese Yen", Symbol: "¥"},
	{Code: GBP, Name: "British Pound", Symbol: "£"},
}

// Currencies returns the enumeration in display order.
func Currencies() []CurrencyInfo {
	out := make([]CurrencyInfo, len(currencies))
	copy(out, currencies)
	return out
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	for _, ci := range currencies {
		if ci.Code == c {
			return true
		}
	}
	return false
}

// Symbol falls back to the code itself for currencies outside the set.
func (c Currency) Symbol() string {
	for _, ci := range currencies {
		if ci.Code == c {
			return ci.Symbol
		}
	}
	return string(c)
}

func (c Currency) String() string { return string(c) }

// Format renders an amount the way the storefront displays prices, e.g. "€12.50".
func Format(amount decimal.Decimal, c Currency) string {
	return c.Symbol() + amount.StringFixed(2)
}
