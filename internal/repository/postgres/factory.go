package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/wastepay/payment-service/internal/repository"
)

type Repositories struct {
	Wallets            repo.Wallets
	Transactions       repo.Transactions
	CollectionPayments repo.CollectionPayments
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Wallets:            &walletsRepo{pool},
		Transactions:       &transactionsRepo{pool},
		CollectionPayments: &collectionPaymentsRepo{pool},
	}
}
