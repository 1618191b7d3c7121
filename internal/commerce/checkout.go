package commerce

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PokeStore/internal/store"
)

// Checkout buys everything in the cart with the wallet balance.
//
// Prices are converted into the wallet currency before the store is locked,
// since conversion may call out to the rate service. The debit, the ledger
// extension and the cart clear then commit as one write, after re-checking
// that the cart and wallet currency did not move in between. A refused
// checkout changes nothing.
func (m *Manager) Checkout(ctx context.Context) (Receipt, error) {
	w, err := m.Wallet(ctx)
	if err != nil {
		return Receipt{}, err
	}
	get := m.direct(ctx)
	cart, err := loadCart(get)
	if err != nil {
		return Receipt{}, err
	}
	if len(cart) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	cache, err := loadCache(get)
	if err != nil {
		return Receipt{}, err
	}

	total := decimal.Zero
	for _, e := range cart {
		item, ok := cache[e.ItemID]
		if !ok {
			return Receipt{}, fmt.Errorf("%w: %d", ErrItemNotCached, e.ItemID)
		}
		line := m.conv.Convert(ctx, item.Price, item.Currency, w.Currency)
		total = total.Add(line.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}

	if total.GreaterThan(w.Balance) {
		m.log.Info("checkout refused",
			zap.String("total", total.String()),
			zap.String("balance", w.Balance.String()),
			zap.Stringer("currency", w.Currency),
		)
		return Receipt{}, fmt.Errorf("%w: total %s exceeds balance %s", ErrInsufficientFunds, total, w.Balance)
	}

	var after Wallet
	err = m.store.Update(ctx, store.KindCheckoutCompleted, func(tx *store.Tx) error {
		cur, _, err := m.walletTx(tx)
		if err != nil {
			return err
		}
		curCart, err := loadCart(tx.Get)
		if err != nil {
			return err
		}
		if cur.Currency != w.Currency || !slices.Equal(cart, curCart) {
			return ErrCartChanged
		}
		if total.GreaterThan(cur.Balance) {
			return fmt.Errorf("%w: total %s exceeds balance %s", ErrInsufficientFunds, total, cur.Balance)
		}

		owned, err := loadOwned(tx.Get)
		if err != nil {
			return err
		}
		for _, e := range cart {
			for range e.Quantity {
				if !slices.Contains(owned, e.ItemID) {
					owned = append(owned, e.ItemID)
				}
			}
		}

		cur.Balance = cur.Balance.Sub(total)
		after = cur

		if err := tx.Set(store.TableWallet, cur); err != nil {
			return err
		}
		if err := tx.Set(store.TableOwned, owned); err != nil {
			return err
		}
		return tx.Remove(store.TableCart)
	})
	if err != nil {
		return Receipt{}, err
	}

	r := Receipt{
		ID:           m.newID(),
		ItemIDs:      make([]int, 0, len(cart)),
		Total:        total,
		Currency:     after.Currency,
		BalanceAfter: after.Balance,
		CreatedAt:    m.now(),
	}
	for _, e := range cart {
		r.ItemIDs = append(r.ItemIDs, e.ItemID)
	}

	m.log.Info("checkout completed",
		zap.String("receipt_id", r.ID),
		zap.Ints("item_ids", r.ItemIDs),
		zap.String("total", total.String()),
		zap.String("balance_after", after.Balance.String()),
	)
	return r, nil
}
