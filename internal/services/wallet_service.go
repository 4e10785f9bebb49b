package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wastepay/payment-service/internal/gateway"
	"github.com/wastepay/payment-service/internal/metrics"
	"github.com/wastepay/payment-service/internal/models"
	repo "github.com/wastepay/payment-service/internal/repository"
)

// WalletService orchestrates deposit, withdrawal and query flows. All money
// movement goes through the repository's atomic adjust; the service never
// touches balance fields itself.
type WalletService struct {
	wallets  repo.Wallets
	txns     repo.Transactions
	gw       gateway.Gateway
	currency string
}

func NewWalletService(w repo.Wallets, t repo.Transactions, gw gateway.Gateway, currency string) *WalletService {
	return &WalletService{wallets: w, txns: t, gw: gw, currency: currency}
}

// WalletSnapshot is the GET /wallet payload: the wallet plus its most
// recent ledger entries.
type WalletSnapshot struct {
	models.Wallet
	Transactions []models.Transaction `json:"transactions"`
}

func (s *WalletService) GetWalletData(ctx context.Context, ownerID string) (WalletSnapshot, error) {
	w, err := s.wallets.Get(ctx, ownerID)
	if err != nil {
		return WalletSnapshot{}, err
	}
	txns, err := s.txns.ListByWallet(ctx, w.ID, 20, 0)
	if err != nil {
		return WalletSnapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	return WalletSnapshot{Wallet: w, Transactions: txns}, nil
}

// DepositOrder is handed back to the caller so the hosted checkout can be
// opened; no balance changes until the signed callback is verified.
type DepositOrder struct {
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
}

func (s *WalletService) InitiateDeposit(ctx context.Context, ownerID string, amount int64) (DepositOrder, error) {
	if amount <= 0 {
		return DepositOrder{}, fmt.Errorf("%w: amount must be > 0", ErrBadRequest)
	}

	// Lazily create the wallet so a first-ever deposit works.
	if _, err := s.wallets.Create(ctx, ownerID); err != nil {
		return DepositOrder{}, fmt.Errorf("ensure wallet: %w", err)
	}

	order, err := s.gw.CreateOrder(ctx, amount, s.currency)
	if err != nil {
		return DepositOrder{}, err
	}
	return DepositOrder{OrderID: order.ID, Amount: order.Amount}, nil
}

// GatewayCallback is the signed payload posted back after a hosted payment.
type GatewayCallback struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// VerifyDeposit checks the callback signature, confirms the captured amount
// with the gateway itself and only then credits the wallet. The gateway
// payment id doubles as the credit's idempotency key, so a replayed
// callback cannot credit twice.
func (s *WalletService) VerifyDeposit(ctx context.Context, ownerID string, cb GatewayCallback) (repo.AdjustResult, error) {
	if cb.OrderID == "" || cb.PaymentID == "" || cb.Signature == "" {
		return repo.AdjustResult{}, fmt.Errorf("%w: missing callback fields", ErrBadRequest)
	}
	if !s.gw.VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		metrics.LedgerRejections.WithLabelValues("invalid_signature").Inc()
		return repo.AdjustResult{}, ErrInvalidSignature
	}

	payment, err := s.gw.FetchPayment(ctx, cb.PaymentID)
	if err != nil {
		return repo.AdjustResult{}, err
	}
	if payment.Status != "captured" {
		return repo.AdjustResult{}, fmt.Errorf("%w: payment %s not captured (%s)", ErrBadRequest, payment.ID, payment.Status)
	}

	key := "deposit:" + payment.ID
	res, err := s.wallets.AdjustBalance(ctx, ownerID, payment.Amount, models.Transaction{
		Type:           models.TxnCredit,
		Amount:         payment.Amount,
		ServiceType:    "deposit",
		IdempotencyKey: &key,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrWalletNotActive) {
			return repo.AdjustResult{}, err
		}
		slog.Error("deposit credit failed", "owner_id", ownerID, "payment_id", payment.ID, "err", err)
		return repo.AdjustResult{}, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	if res.Applied {
		metrics.LedgerAdjustments.WithLabelValues("credit", "deposit").Inc()
	}
	return res, nil
}

func (s *WalletService) WithdrawMoney(ctx context.Context, ownerID string, amount int64) (repo.AdjustResult, error) {
	if amount <= 0 {
		return repo.AdjustResult{}, fmt.Errorf("%w: amount must be > 0", ErrBadRequest)
	}

	res, err := s.wallets.AdjustBalance(ctx, ownerID, -amount, models.Transaction{
		Type:        models.TxnDebit,
		Amount:      amount,
		ServiceType: "withdraw",
	})
	if err != nil {
		// InsufficientFunds and NotFound pass through untouched.
		if errors.Is(err, repo.ErrInsufficientFunds) {
			metrics.LedgerRejections.WithLabelValues("insufficient_funds").Inc()
			return repo.AdjustResult{}, err
		}
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrWalletNotActive) {
			return repo.AdjustResult{}, err
		}
		slog.Error("withdraw failed", "owner_id", ownerID, "amount", amount, "err", err)
		return repo.AdjustResult{}, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	metrics.LedgerAdjustments.WithLabelValues("debit", "withdraw").Inc()
	return res, nil
}

// CreateWallet backs the user-created event: idempotent, returns the
// existing wallet when one is already there.
func (s *WalletService) CreateWallet(ctx context.Context, ownerID string) (models.Wallet, error) {
	if ownerID == "" {
		return models.Wallet{}, fmt.Errorf("%w: owner id required", ErrBadRequest)
	}
	return s.wallets.Create(ctx, ownerID)
}
