package commerce

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PokeStore/internal/pricing"
	"PokeStore/internal/store"
)

// Wallet returns the wallet, opening one with a random balance on first use.
// Opening a wallet is a write like any other and is broadcast as
// KindWalletCreated.
func (m *Manager) Wallet(ctx context.Context) (Wallet, error) {
	var w Wallet
	found, err := m.store.Get(ctx, store.TableWallet, &w)
	if err != nil {
		return Wallet{}, err
	}
	if found {
		return w, nil
	}

	err = m.store.Update(ctx, store.KindWalletCreated, func(tx *store.Tx) error {
		var created bool
		w, created, err = m.walletTx(tx)
		if err != nil || !created {
			return err
		}
		return tx.Set(store.TableWallet, w)
	})
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// walletTx reads the wallet inside tx, building a fresh one when absent.
// The fresh wallet is not staged; created tells the caller to persist it.
func (m *Manager) walletTx(tx *store.Tx) (w Wallet, created bool, err error) {
	found, err := tx.Get(store.TableWallet, &w)
	if err != nil {
		return Wallet{}, false, err
	}
	if found {
		return w, false, nil
	}

	w = Wallet{Balance: m.balances.InitialBalance(), Currency: pricing.WalletCurrency}
	m.log.Info("wallet opened",
		zap.String("balance", w.Balance.String()),
		zap.Stringer("currency", w.Currency),
	)
	return w, true, nil
}

// AddFunds credits a positive amount. There is no upper bound.
func (m *Manager) AddFunds(ctx context.Context, amount decimal.Decimal) (Wallet, error) {
	if !amount.IsPositive() {
		return Wallet{}, ErrInvalidAmount
	}

	var w Wallet
	err := m.store.Update(ctx, store.KindFundsAdded, func(tx *store.Tx) error {
		var err error
		w, _, err = m.walletTx(tx)
		if err != nil {
			return err
		}
		w.Balance = w.Balance.Add(amount)
		return tx.Set(store.TableWallet, w)
	})
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}
