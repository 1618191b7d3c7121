package commerce

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PokeStore/internal/store"
)

func (m *Manager) Cart(ctx context.Context) ([]CartEntry, error) {
	return loadCart(m.direct(ctx))
}

// AddToCart appends item with quantity 1 and caches its snapshot unless the
// id is cached already, in which case the cached price stands. An item
// already in the cart or already owned leaves the cart as it is.
func (m *Manager) AddToCart(ctx context.Context, item Item) ([]CartEntry, error) {
	if item.ID <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidItem, item.ID)
	}

	var cart []CartEntry
	err := m.store.Update(ctx, store.KindCartUpdated, func(tx *store.Tx) error {
		var err error
		if cart, err = loadCart(tx.Get); err != nil {
			return err
		}
		if containsItem(cart, item.ID) {
			return nil
		}

		owned, err := loadOwned(tx.Get)
		if err != nil {
			return err
		}
		if slices.Contains(owned, item.ID) {
			return nil
		}

		cart = append(cart, CartEntry{ItemID: item.ID, Quantity: 1})
		if err := tx.Set(store.TableCart, cart); err != nil {
			return err
		}

		cache, err := loadCache(tx.Get)
		if err != nil {
			return err
		}
		if _, ok := cache[item.ID]; ok {
			return nil
		}
		cache[item.ID] = item
		return tx.Set(store.TableItemCache, cache)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveFromCart drops the entry for id. Removing an absent id is not an
// error and writes nothing.
func (m *Manager) RemoveFromCart(ctx context.Context, id int) ([]CartEntry, error) {
	var cart []CartEntry
	err := m.store.Update(ctx, store.KindCartUpdated, func(tx *store.Tx) error {
		var err error
		if cart, err = loadCart(tx.Get); err != nil {
			return err
		}
		if !containsItem(cart, id) {
			return nil
		}
		cart = slices.DeleteFunc(cart, func(e CartEntry) bool { return e.ItemID == id })
		return tx.Set(store.TableCart, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (m *Manager) ClearCart(ctx context.Context) error {
	return m.store.Update(ctx, store.KindCartCleared, func(tx *store.Tx) error {
		return tx.Remove(store.TableCart)
	})
}

// CartView prices every cart line in the wallet currency.
func (m *Manager) CartView(ctx context.Context) (CartView, error) {
	w, err := m.Wallet(ctx)
	if err != nil {
		return CartView{}, err
	}
	get := m.direct(ctx)
	cart, err := loadCart(get)
	if err != nil {
		return CartView{}, err
	}
	cache, err := loadCache(get)
	if err != nil {
		return CartView{}, err
	}

	v := CartView{Lines: make([]CartLine, 0, len(cart)), Total: decimal.Zero, Currency: w.Currency}
	for _, e := range cart {
		line := CartLine{CartEntry: e, Converted: decimal.Zero}
		item, ok := cache[e.ItemID]
		if !ok {
			v.Missing = append(v.Missing, e.ItemID)
			v.Lines = append(v.Lines, line)
			continue
		}
		line.Item = &item
		line.Converted = m.conv.Convert(ctx, item.Price, item.Currency, w.Currency).Mul(decimal.NewFromInt(int64(e.Quantity)))
		v.Total = v.Total.Add(line.Converted)
		v.Lines = append(v.Lines, line)
	}
	if len(v.Missing) > 0 {
		m.log.Warn("cart entries without cached item", zap.Ints("item_ids", v.Missing))
	}
	return v, nil
}

func containsItem(cart []CartEntry, id int) bool {
	return slices.ContainsFunc(cart, func(e CartEntry) bool { return e.ItemID == id })
}
