package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wastepay/payment-service/internal/models"
	"github.com/wastepay/payment-service/internal/repository"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	var t models.Transaction
	err := r.pool.QueryRow(ctx,
		`SELECT id, wallet_id, type, amount, status, service_type, idempotency_key, created_at
		   FROM transactions
		  WHERE id=$1`,
		id,
	).Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Status, &t.ServiceType, &t.IdempotencyKey, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrNotFound
	}
	return t, err
}

func (r *transactionsRepo) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, wallet_id, type, amount, status, service_type, idempotency_key, created_at
		   FROM transactions
		  WHERE wallet_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Status, &t.ServiceType, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
