package commerce

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidItem       = errors.New("invalid item")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartChanged       = errors.New("cart changed during checkout")
	ErrItemNotCached     = errors.New("item not cached")
)
