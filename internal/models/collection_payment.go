package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodOnline PaymentMethod = "online"
	MethodWallet PaymentMethod = "wallet"
	MethodCash   PaymentMethod = "cash"
)

// CollectionPayment records how a collection advance was settled. Its ID is
// the opaque payment identifier handed back to the collection service.
// Terminal once Status leaves pending.
type CollectionPayment struct {
	ID             string        `json:"payment_id"`
	OwnerID        string        `json:"owner_id"`
	AdvanceAmount  int64         `json:"advance_amount"`
	AdvanceStatus  PaymentStatus `json:"advance_status"`
	TotalAmount    int64         `json:"total_amount"`
	Status         PaymentStatus `json:"status"`
	Method         PaymentMethod `json:"method"`
	GatewayOrderID *string       `json:"gateway_order_id,omitempty"`
	TransactionID  *string       `json:"transaction_id,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
