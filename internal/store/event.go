package store

import (
	"slices"
	"time"
)

type Kind string

const (
	KindSet               Kind = "set"
	KindRemove            Kind = "remove"
	KindClear             Kind = "clear"
	KindWalletCreated     Kind = "wallet_created"
	KindFundsAdded        Kind = "funds_added"
	KindCartUpdated       Kind = "cart_updated"
	KindCartCleared       Kind = "cart_cleared"
	KindItemCached        Kind = "item_cached"
	KindCheckoutCompleted Kind = "checkout_completed"
)

// Event announces one committed write. Tables lists every table the write
// touched, so subscribers can skip re-reading the others.
type Event struct {
	Kind   Kind      `json:"kind"`
	Tables []Table   `json:"tables"`
	At     time.Time `json:"at"`
}

func (e Event) Touches(t Table) bool {
	return slices.Contains(e.Tables, t)
}
