package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wastepay/payment-service/internal/models"
	"github.com/wastepay/payment-service/internal/repository"
)

type walletsRepo struct{ pool *pgxpool.Pool }

func (r *walletsRepo) Get(ctx context.Context, ownerID string) (models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, balance, status, created_at, updated_at
		   FROM wallets
		  WHERE owner_id=$1`,
		ownerID,
	).Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, repository.ErrNotFound
	}
	return w, err
}

func (r *walletsRepo) Create(ctx context.Context, ownerID string) (models.Wallet, error) {
	if w, err := r.Get(ctx, ownerID); err == nil {
		return w, nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets(id, owner_id, balance, status)
		 VALUES($1, $2, 0, 'active')
		 ON CONFLICT (owner_id) DO NOTHING`,
		uuid.NewString(), ownerID,
	)
	if err != nil {
		return models.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return r.Get(ctx, ownerID)
}

// AdjustBalance runs the whole money movement in one database transaction:
//
// 1) Lock the wallet row (FOR UPDATE).
// 2) If the entry carries an idempotency key already on the ledger, return
//    the recorded entry without touching the balance.
// 3) Reject non-active wallets and debits the locked balance cannot cover.
// 4) Apply the delta with a conditional update (balance stays >= 0).
// 5) Append the completed ledger entry, returning its identity.
func (r *walletsRepo) AdjustBalance(ctx context.Context, ownerID string, delta int64, entry models.Transaction) (repository.AdjustResult, error) {
	var res repository.AdjustResult

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var w models.Wallet
		err := tx.QueryRow(ctx,
			`SELECT id, owner_id, balance, status, created_at, updated_at
			   FROM wallets
			  WHERE owner_id=$1
			    FOR UPDATE`,
			ownerID,
		).Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		if entry.IdempotencyKey != nil && *entry.IdempotencyKey != "" {
			var prev models.Transaction
			err := tx.QueryRow(ctx,
				`SELECT id, wallet_id, type, amount, status, service_type, idempotency_key, created_at
				   FROM transactions
				  WHERE idempotency_key=$1`,
				*entry.IdempotencyKey,
			).Scan(&prev.ID, &prev.WalletID, &prev.Type, &prev.Amount, &prev.Status, &prev.ServiceType, &prev.IdempotencyKey, &prev.CreatedAt)
			if err == nil {
				res = repository.AdjustResult{Wallet: w, Transaction: prev, Applied: false}
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("idempotency lookup: %w", err)
			}
		}

		if w.Status != models.WalletActive {
			return repository.ErrWalletNotActive
		}
		if delta < 0 && w.Balance+delta < 0 {
			return repository.ErrInsufficientFunds
		}

		err = tx.QueryRow(ctx,
			`UPDATE wallets
			    SET balance = balance + $2,
			        updated_at = now()
			  WHERE owner_id = $1
			    AND balance + $2 >= 0
			  RETURNING id, owner_id, balance, status, created_at, updated_at`,
			ownerID, delta,
		).Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			// Unreachable while the row is locked; kept so the guard never
			// depends on the lock alone.
			return repository.ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry.WalletID = w.ID
		entry.Status = models.TxnCompleted
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO transactions(id, wallet_id, type, amount, status, service_type, idempotency_key)
			 VALUES($1,$2,$3,$4,$5,$6,$7)
			 RETURNING created_at`,
			entry.ID, entry.WalletID, entry.Type, entry.Amount, entry.Status, entry.ServiceType, entry.IdempotencyKey,
		).Scan(&entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		res = repository.AdjustResult{Wallet: w, Transaction: entry, Applied: true}
		return nil
	})
	if err != nil {
		return repository.AdjustResult{}, err
	}
	return res, nil
}
