package shop

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"PokeStore/internal/catalog"
	"PokeStore/internal/commerce"
	"PokeStore/internal/pricing"
	"PokeStore/internal/store"
	"PokeStore/pkg/kit"
)

type Server struct {
	Store   *store.Store
	Manager *commerce.Manager
	Loader  *catalog.Loader
	Metrics *CommerceMetrics
	Log     *zap.Logger
}

type fundsReq struct {
	Amount decimal.Decimal `json:"amount"`
}

type cartItemReq struct {
	ItemID int `json:"item_id"`
}

type currencyResp struct {
	Currencies []pricing.CurrencyInfo `json:"currencies"`
	Wallet     pricing.Currency       `json:"wallet"`
}

type walletResp struct {
	commerce.Wallet
	Formatted string `json:"formatted"`
}

var errBadID = errors.New("bad id")

func (s *Server) currencies(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, currencyResp{
		Currencies: pricing.Currencies(),
		Wallet:     pricing.WalletCurrency,
	})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad page", map[string]any{"page": raw})
			return
		}
		page = n
	}

	p, err := s.Loader.LoadPage(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p.Items = catalog.Filter(p.Items, r.URL.Query().Get("q"))
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.Loader.Item(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.Manager.Wallet(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, toWalletResp(wallet))
}

func (s *Server) addFunds(w http.ResponseWriter, r *http.Request) {
	var req fundsReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	wallet, err := s.Manager.AddFunds(r.Context(), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, toWalletResp(wallet))
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, http.StatusOK)
}

// addToCart resolves the item through the loader first, so the cart always
// carries the cached price the user saw.
func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.ItemID <= 0 {
		s.writeError(w, r, commerce.ErrInvalidItem)
		return
	}

	item, err := s.Loader.Item(r.Context(), req.ItemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.Manager.AddToCart(r.Context(), item); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.Manager.RemoveFromCart(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.ClearCart(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.Manager.Checkout(r.Context())
	if s.Metrics != nil {
		s.Metrics.ObserveCheckout(err)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, receipt)
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) {
	c, err := s.Manager.Collection(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) clearState(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.ClearAll(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := s.Manager.CartView(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, status, view)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadID):
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
	case errors.Is(err, commerce.ErrInvalidAmount):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid amount", nil)
	case errors.Is(err, commerce.ErrInvalidItem):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid item", nil)
	case errors.Is(err, catalog.ErrInvalidPage):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid page", nil)
	case errors.Is(err, commerce.ErrEmptyCart):
		kit.WriteError(w, r, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, commerce.ErrInsufficientFunds):
		kit.WriteError(w, r, http.StatusPaymentRequired, "insufficient funds", err.Error())
	case errors.Is(err, commerce.ErrCartChanged):
		kit.WriteError(w, r, http.StatusConflict, "cart changed, retry", nil)
	case errors.Is(err, commerce.ErrItemNotCached), errors.Is(err, catalog.ErrItemNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "item not found", nil)
	case errors.Is(err, catalog.ErrFetchFailed):
		kit.WriteError(w, r, http.StatusBadGateway, "item service unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.Log.Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func itemID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func toWalletResp(w commerce.Wallet) walletResp {
	return walletResp{Wallet: w, Formatted: pricing.Format(w.Balance, w.Currency)}
}
