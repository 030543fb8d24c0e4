package ledger

import "errors"

var (
	// ErrInvalidArgument is returned for malformed or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when an operation targets a missing account.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
