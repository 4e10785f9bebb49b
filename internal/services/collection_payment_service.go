package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wastepay/payment-service/internal/gateway"
	"github.com/wastepay/payment-service/internal/metrics"
	"github.com/wastepay/payment-service/internal/models"
	repo "github.com/wastepay/payment-service/internal/repository"
)

// CollectionPaymentService settles collection advances: hosted-checkout
// orders, signed callback verification and pay-by-wallet, plus the refund
// path driven by cancellation events.
type CollectionPaymentService struct {
	wallets  repo.Wallets
	payments repo.CollectionPayments
	gw       gateway.Gateway
	currency string
}

func NewCollectionPaymentService(w repo.Wallets, p repo.CollectionPayments, gw gateway.Gateway, currency string) *CollectionPaymentService {
	return &CollectionPaymentService{wallets: w, payments: p, gw: gw, currency: currency}
}

// CreateOrder asks the gateway for a hosted order. Nothing is persisted
// here; a payment row appears once an owner is known, at verification or
// wallet payment.
func (s *CollectionPaymentService) CreateOrder(ctx context.Context, amount int64) (gateway.Order, error) {
	if amount <= 0 {
		return gateway.Order{}, fmt.Errorf("%w: amount must be > 0", ErrBadRequest)
	}
	return s.gw.CreateOrder(ctx, amount, s.currency)
}

// VerificationResult correlates the verified gateway payment with the
// collection domain via an opaque payment id.
type VerificationResult struct {
	IsValidPayment bool   `json:"isValidPayment"`
	PaymentID      string `json:"paymentId"`
}

// VerifyPayment checks the callback signature the same way the deposit flow
// does and records the advance as captured. It never moves wallet money;
// the advance was captured by the gateway directly.
func (s *CollectionPaymentService) VerifyPayment(ctx context.Context, ownerID string, cb GatewayCallback) (VerificationResult, error) {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return VerificationResult{}, fmt.Errorf("%w: missing callback fields", ErrBadRequest)
	}
	if !s.gw.VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		metrics.LedgerRejections.WithLabelValues("invalid_signature").Inc()
		return VerificationResult{}, ErrInvalidSignature
	}

	payment, err := s.gw.FetchPayment(ctx, cb.PaymentID)
	if err != nil {
		return VerificationResult{}, err
	}

	now := time.Now()
	rec, err := s.payments.Create(ctx, models.CollectionPayment{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		AdvanceAmount:  payment.Amount,
		AdvanceStatus:  models.PaymentSuccess,
		TotalAmount:    payment.Amount,
		Status:         models.PaymentSuccess,
		Method:         models.MethodOnline,
		GatewayOrderID: &cb.OrderID,
		PaidAt:         &now,
	})
	if err != nil {
		slog.Error("record collection payment failed", "owner_id", ownerID, "order_id", cb.OrderID, "err", err)
		return VerificationResult{}, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	return VerificationResult{IsValidPayment: true, PaymentID: rec.ID}, nil
}

// WalletPaymentResult identifies both the ledger entry and the payment row
// created by a pay-by-wallet.
type WalletPaymentResult struct {
	TransactionID string `json:"transactionId"`
	PaymentID     string `json:"paymentId"`
}

// PayWithWallet debits the owner's wallet for a collection charge. The
// fail-fast balance read gives a clean 4xx; the repository re-validates
// under its row lock, so a racing sibling debit still cannot overdraw.
func (s *CollectionPaymentService) PayWithWallet(ctx context.Context, ownerID string, amount int64, serviceType string) (WalletPaymentResult, error) {
	if amount <= 0 || ownerID == "" {
		return WalletPaymentResult{}, fmt.Errorf("%w: owner id and positive amount required", ErrBadRequest)
	}
	if serviceType == "" {
		serviceType = "collection"
	}

	w, err := s.wallets.Get(ctx, ownerID)
	if err != nil {
		return WalletPaymentResult{}, err
	}
	if w.Balance < amount {
		metrics.LedgerRejections.WithLabelValues("insufficient_funds").Inc()
		return WalletPaymentResult{}, repo.ErrInsufficientFunds
	}

	res, err := s.wallets.AdjustBalance(ctx, ownerID, -amount, models.Transaction{
		Type:        models.TxnDebit,
		Amount:      amount,
		ServiceType: serviceType,
	})
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) || errors.Is(err, repo.ErrWalletNotActive) {
			return WalletPaymentResult{}, err
		}
		slog.Error("wallet payment failed", "owner_id", ownerID, "amount", amount, "err", err)
		return WalletPaymentResult{}, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	metrics.LedgerAdjustments.WithLabelValues("debit", serviceType).Inc()

	now := time.Now()
	rec, err := s.payments.Create(ctx, models.CollectionPayment{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		AdvanceAmount: amount,
		AdvanceStatus: models.PaymentSuccess,
		TotalAmount:   amount,
		Status:        models.PaymentSuccess,
		Method:        models.MethodWallet,
		TransactionID: &res.Transaction.ID,
		PaidAt:        &now,
	})
	if err != nil {
		// The debit committed; the payment row is bookkeeping. Log and
		// return the ledger identity rather than failing the charge.
		slog.Error("record wallet payment failed", "owner_id", ownerID, "transaction_id", res.Transaction.ID, "err", err)
		return WalletPaymentResult{TransactionID: res.Transaction.ID}, nil
	}
	return WalletPaymentResult{TransactionID: res.Transaction.ID, PaymentID: rec.ID}, nil
}

// RefundAdvance credits back a cancelled collection's advance. The
// originating collection id keys the refund, so redelivered cancellation
// events settle on the first refund's ledger entry.
func (s *CollectionPaymentService) RefundAdvance(ctx context.Context, ownerID string, amount int64, collectionID string) (repo.AdjustResult, error) {
	if ownerID == "" || collectionID == "" || amount <= 0 {
		return repo.AdjustResult{}, fmt.Errorf("%w: owner id, collection id and positive amount required", ErrBadRequest)
	}

	// Cancellation can arrive before the owner ever deposited.
	if _, err := s.wallets.Create(ctx, ownerID); err != nil {
		return repo.AdjustResult{}, fmt.Errorf("ensure wallet: %w", err)
	}

	key := "collection-refund:" + collectionID
	res, err := s.wallets.AdjustBalance(ctx, ownerID, amount, models.Transaction{
		Type:           models.TxnRefund,
		Amount:         amount,
		ServiceType:    "collection-refund",
		IdempotencyKey: &key,
	})
	if err != nil {
		slog.Error("refund failed", "owner_id", ownerID, "collection_id", collectionID, "err", err)
		return repo.AdjustResult{}, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	if res.Applied {
		metrics.LedgerAdjustments.WithLabelValues("refund", "collection-refund").Inc()
	}
	return res, nil
}
