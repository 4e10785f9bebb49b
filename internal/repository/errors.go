package repository

import "errors"

var (
	// ErrNotFound is returned when no wallet exists for the owner.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds is returned when a debit would drive the
	// balance negative. Nothing is written in that case.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotActive is returned for adjustments against suspended
	// or closed wallets.
	ErrWalletNotActive = errors.New("wallet not active")
)
