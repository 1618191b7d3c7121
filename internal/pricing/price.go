package pricing

import (
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

const (
	basePriceMin  = 100
	basePriceSpan = 1000
)

// priceMultipliers scale the MXN base price into each currency's range.
var priceMultipliers = map[Currency]float64{
	MXN: 1,
	USD: 0.06,
	EUR: 0.055,
	JPY: 8.5,
	GBP: 0.047,
}

// Pricer assigns a random currency and price to newly fetched items. It is
// safe for concurrent use.
type Pricer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPricer(rnd *rand.Rand) *Pricer {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Pricer{rnd: rnd}
}

// Assign picks a currency uniformly from the set and a whole-unit price in
// that currency's range.
func (p *Pricer) Assign() (decimal.Decimal, Currency) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := currencies[p.rnd.IntN(len(currencies))].Code
	base := p.rnd.Float64()*basePriceSpan + basePriceMin
	return decimal.NewFromFloat(base * priceMultipliers[c]).Round(0), c
}

// InitialBalance draws the opening balance for a new wallet, uniform over
// the integers in [5000, 15000).
func (p *Pricer) InitialBalance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	return decimal.NewFromInt(int64(p.rnd.IntN(10000) + 5000))
}
