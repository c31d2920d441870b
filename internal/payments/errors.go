package payments

import "errors"

var (
	// ErrNotFound is returned when a payment, wallet or invoice does not exist.
	ErrNotFound = errors.New("payment record not found")

	// ErrInsufficientFunds is returned when a wallet debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient wallet funds")

	// ErrInvalidState is returned when a payment operation is attempted in a
	// state that forbids it.
	ErrInvalidState = errors.New("invalid payment state transition")

	// ErrInvalidAmount is returned for zero or negative money movements.
	ErrInvalidAmount = errors.New("amount must be positive")
)
