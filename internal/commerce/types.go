package commerce

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"PokeStore/internal/pricing"
)

type Stats struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

// Item is a fetched creature record. Price and currency are fixed when the
// item is fetched; the cached copy is the price the user pays.
type Item struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	Image    string           `json:"image"`
	Types    []string         `json:"types"`
	Height   int              `json:"height"`
	Weight   int              `json:"weight"`
	Price    decimal.Decimal  `json:"price"`
	Currency pricing.Currency `json:"currency"`
	Stats    Stats            `json:"stats"`
}

// Equal compares prices by value, so an item survives a JSON round trip.
func (i Item) Equal(o Item) bool {
	return i.ID == o.ID &&
		i.Name == o.Name &&
		i.Image == o.Image &&
		slices.Equal(i.Types, o.Types) &&
		i.Height == o.Height &&
		i.Weight == o.Weight &&
		i.Price.Equal(o.Price) &&
		i.Currency == o.Currency &&
		i.Stats == o.Stats
}

type Wallet struct {
	Balance  decimal.Decimal  `json:"balance"`
	Currency pricing.Currency `json:"currency"`
}

type CartEntry struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

// CartLine is a cart entry priced in the wallet currency. Item is nil when
// the entry has no cache record.
type CartLine struct {
	CartEntry
	Item      *Item           `json:"item,omitempty"`
	Converted decimal.Decimal `json:"converted"`
}

type CartView struct {
	Lines    []CartLine       `json:"lines"`
	Total    decimal.Decimal  `json:"total"`
	Currency pricing.Currency `json:"currency"`
	Missing  []int            `json:"missing,omitempty"`
}

// Collection is the owned-items view. Missing lists owned ids that have no
// cache record and therefore cannot be shown.
type Collection struct {
	Items   []Item `json:"items"`
	Missing []int  `json:"missing,omitempty"`
}

type Receipt struct {
	ID           string           `json:"id"`
	ItemIDs      []int            `json:"item_ids"`
	Total        decimal.Decimal  `json:"total"`
	Currency     pricing.Currency `json:"currency"`
	BalanceAfter decimal.Decimal  `json:"balance_after"`
	CreatedAt    time.Time        `json:"created_at"`
}
