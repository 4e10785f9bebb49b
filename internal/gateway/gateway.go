package gateway

import (
	"context"
	"errors"
)

// ErrUnavailable covers transport and configuration failures talking to the
// payment gateway. Signature mismatches are not errors; VerifySignature
// just returns false.
var ErrUnavailable = errors.New("payment gateway unavailable")

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// Gateway is the external payment provider: an untrusted, possibly-failing
// peer. Order amounts are in the gateway's minor currency unit.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (Order, error)

	// FetchPayment confirms the captured amount and status from the
	// gateway's own record, the source of truth over anything a client
	// sends in a callback.
	FetchPayment(ctx context.Context, paymentID string) (Payment, error)

	// VerifySignature reports whether sig is a valid HMAC over
	// orderID|paymentID. Constant time; never errors on mismatch.
	VerifySignature(orderID, paymentID, sig string) bool
}
