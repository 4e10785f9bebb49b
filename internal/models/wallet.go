package models

import "time"

type WalletStatus string

const (
	WalletActive    WalletStatus = "active"
	WalletSuspended WalletStatus = "suspended"
	WalletClosed    WalletStatus = "closed"
)

// Wallet holds a single owner's balance in minor currency units. The
// balance is only ever written through the repository's atomic
// adjust-and-append operation and always equals the signed sum of the
// wallet's completed transactions.
type Wallet struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Balance   int64        `json:"balance"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
