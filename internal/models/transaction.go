package models

import "time"

type TransactionType string

const (
	TxnDebit  TransactionType = "debit"
	TxnCredit TransactionType = "credit"
	TxnRefund TransactionType = "refund"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

// Transaction is one append-only ledger entry. Amount is a positive
// magnitude; Type carries the sign. Completed entries are immutable:
// corrections append a compensating entry instead of editing history.
type Transaction struct {
	ID             string            `json:"id"`
	WalletID       string            `json:"wallet_id"`
	Type           TransactionType   `json:"type"`
	Amount         int64             `json:"amount"`
	Status         TransactionStatus `json:"status"`
	ServiceType    string            `json:"service_type"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Signed returns the entry's effect on the wallet balance.
func (t Transaction) Signed() int64 {
	if t.Type == TxnDebit {
		return -t.Amount
	}
	return t.Amount
}
