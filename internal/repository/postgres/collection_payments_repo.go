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

type collectionPaymentsRepo struct{ pool *pgxpool.Pool }

func (r *collectionPaymentsRepo) Create(ctx context.Context, p models.CollectionPayment) (models.CollectionPayment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO collection_payments(
		    id, owner_id, advance_amount, advance_status, total_amount,
		    status, method, gateway_order_id, transaction_id, paid_at
		 ) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING created_at`,
		p.ID, p.OwnerID, p.AdvanceAmount, p.AdvanceStatus, p.TotalAmount,
		p.Status, p.Method, p.GatewayOrderID, p.TransactionID, p.PaidAt,
	).Scan(&p.CreatedAt)
	if err != nil {
		return models.CollectionPayment{}, fmt.Errorf("create collection payment: %w", err)
	}
	return p, nil
}

func (r *collectionPaymentsRepo) GetByID(ctx context.Context, id string) (models.CollectionPayment, error) {
	var p models.CollectionPayment
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, advance_amount, advance_status, total_amount,
		        status, method, gateway_order_id, transaction_id, paid_at, created_at
		   FROM collection_payments
		  WHERE id=$1`,
		id,
	).Scan(&p.ID, &p.OwnerID, &p.AdvanceAmount, &p.AdvanceStatus, &p.TotalAmount,
		&p.Status, &p.Method, &p.GatewayOrderID, &p.TransactionID, &p.PaidAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CollectionPayment{}, repository.ErrNotFound
	}
	return p, err
}

func (r *collectionPaymentsRepo) MarkPaid(ctx context.Context, id string, status models.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE collection_payments
		    SET status=$2, advance_status=$2, paid_at=now()
		  WHERE id=$1 AND status='pending'`,
		id, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
