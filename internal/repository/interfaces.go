package repository

import (
	"context"

	"github.com/wastepay/payment-service/internal/models"
)

// AdjustResult is what the atomic adjust-and-append hands back: the wallet
// after the write and the ledger entry that was appended. Applied is false
// when the entry's idempotency key had already been seen; Transaction then
// holds the previously recorded entry and the balance is untouched.
type AdjustResult struct {
	Wallet      models.Wallet
	Transaction models.Transaction
	Applied     bool
}

// Wallets is the only component permitted to mutate a wallet's balance.
type Wallets interface {
	Get(ctx context.Context, ownerID string) (models.Wallet, error)

	// Create is idempotent: an existing wallet for ownerID is returned
	// as-is, so duplicate user-created deliveries never fail.
	Create(ctx context.Context, ownerID string) (models.Wallet, error)

	// AdjustBalance applies delta to the owner's balance and appends entry
	// as one indivisible unit. The balance check and the write happen under
	// a row lock inside one database transaction; a debit that would go
	// negative fails with ErrInsufficientFunds and appends nothing.
	AdjustBalance(ctx context.Context, ownerID string, delta int64, entry models.Transaction) (AdjustResult, error)
}

type Transactions interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transaction, error)
}

type CollectionPayments interface {
	Create(ctx context.Context, p models.CollectionPayment) (models.CollectionPayment, error)
	GetByID(ctx context.Context, id string) (models.CollectionPayment, error)
	MarkPaid(ctx context.Context, id string, status models.PaymentStatus) error
}
