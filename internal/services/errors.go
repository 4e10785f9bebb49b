package services

import "errors"

var (
	// ErrInvalidSignature means the gateway callback failed the HMAC
	// check: forgery or tamper, not a transport problem.
	ErrInvalidSignature = errors.New("invalid gateway signature")

	// ErrWalletUpdateFailed means the repository could not complete the
	// atomic adjust for a reason other than insufficient funds.
	ErrWalletUpdateFailed = errors.New("wallet update failed")

	// ErrBadRequest covers missing or malformed caller input caught at
	// the service boundary.
	ErrBadRequest = errors.New("bad request")
)
