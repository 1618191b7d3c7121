// Package commerce is the shop's state model: the wallet, the cart, the
// ownership ledger and the item cache, all kept in a store.Store.
//
// Every mutation is a single store.Update, so each one is applied atomically,
// in call order, and announced with exactly one typed event.
package commerce

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PokeStore/internal/pricing"
	"PokeStore/internal/store"
)

type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to pricing.Currency) decimal.Decimal
}

// BalanceSource draws the opening balance of a new wallet.
type BalanceSource interface {
	InitialBalance() decimal.Decimal
}

type Manager struct {
	store    *store.Store
	conv     Converter
	balances BalanceSource
	log      *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewManager(st *store.Store, conv Converter, balances BalanceSource, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:    st,
		conv:     conv,
		balances: balances,
		log:      log,
		newID:    func() string { return "r_" + uuid.NewString() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ClearAll drops wallet, cart, ledger and cache in one write.
func (m *Manager) ClearAll(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// getter reads a table either directly from the store or through a Tx.
type getter func(t store.Table, dst any) (bool, error)

func (m *Manager) direct(ctx context.Context) getter {
	return func(t store.Table, dst any) (bool, error) {
		return m.store.Get(ctx, t, dst)
	}
}

func loadCart(get getter) ([]CartEntry, error) {
	cart := []CartEntry{}
	if _, err := get(store.TableCart, &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func loadOwned(get getter) ([]int, error) {
	owned := []int{}
	if _, err := get(store.TableOwned, &owned); err != nil {
		return nil, err
	}
	return owned, nil
}

func loadCache(get getter) (map[int]Item, error) {
	cache := map[int]Item{}
	if _, err := get(store.TableItemCache, &cache); err != nil {
		return nil, err
	}
	return cache, nil
}
