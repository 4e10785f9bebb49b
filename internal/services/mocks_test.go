package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wastepay/payment-service/internal/gateway"
	"github.com/wastepay/payment-service/internal/models"
	repo "github.com/wastepay/payment-service/internal/repository"
)

// memWallets mirrors the postgres repository's semantics in memory: one
// mutex stands in for the row lock, so the balance check and the append are
// indivisible, and idempotency keys short-circuit to the recorded entry.
type memWallets struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
	entries []models.Transaction
	byKey   map[string]models.Transaction
}

func newMemWallets() *memWallets {
	return &memWallets{
		wallets: make(map[string]models.Wallet),
		byKey:   make(map[string]models.Transaction),
	}
}

func (m *memWallets) Get(_ context.Context, ownerID string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[ownerID]
	if !ok {
		return models.Wallet{}, repo.ErrNotFound
	}
	return w, nil
}

func (m *memWallets) Create(_ context.Context, ownerID string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[ownerID]; ok {
		return w, nil
	}
	w := models.Wallet{ID: uuid.NewString(), OwnerID: ownerID, Status: models.WalletActive}
	m.wallets[ownerID] = w
	return w, nil
}

func (m *memWallets) AdjustBalance(_ context.Context, ownerID string, delta int64, entry models.Transaction) (repo.AdjustResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[ownerID]
	if !ok {
		return repo.AdjustResult{}, repo.ErrNotFound
	}
	if entry.IdempotencyKey != nil && *entry.IdempotencyKey != "" {
		if prev, seen := m.byKey[*entry.IdempotencyKey]; seen {
			return repo.AdjustResult{Wallet: w, Transaction: prev, Applied: false}, nil
		}
	}
	if w.Status != models.WalletActive {
		return repo.AdjustResult{}, repo.ErrWalletNotActive
	}
	if delta < 0 && w.Balance+delta < 0 {
		return repo.AdjustResult{}, repo.ErrInsufficientFunds
	}

	w.Balance += delta
	m.wallets[ownerID] = w

	entry.ID = uuid.NewString()
	entry.WalletID = w.ID
	entry.Status = models.TxnCompleted
	m.entries = append(m.entries, entry)
	if entry.IdempotencyKey != nil && *entry.IdempotencyKey != "" {
		m.byKey[*entry.IdempotencyKey] = entry
	}
	return repo.AdjustResult{Wallet: w, Transaction: entry, Applied: true}, nil
}

// ledgerSum is the invariant check: signed sum of completed entries for a
// wallet.
func (m *memWallets) ledgerSum(walletID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.WalletID == walletID && e.Status == models.TxnCompleted {
			sum += e.Signed()
		}
	}
	return sum
}

func (m *memWallets) entryCount(walletID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.WalletID == walletID {
			n++
		}
	}
	return n
}

// memWallets also serves the Transactions interface for snapshot reads.
func (m *memWallets) GetByID(_ context.Context, id string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.Transaction{}, repo.ErrNotFound
}

func (m *memWallets) ListByWallet(_ context.Context, walletID string, limit, offset int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].WalletID == walletID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// memPayments is an in-memory CollectionPayments repo.
type memPayments struct {
	mu   sync.Mutex
	rows map[string]models.CollectionPayment
}

func newMemPayments() *memPayments {
	return &memPayments{rows: make(map[string]models.CollectionPayment)}
}

func (m *memPayments) Create(_ context.Context, p models.CollectionPayment) (models.CollectionPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.rows[p.ID] = p
	return p, nil
}

func (m *memPayments) GetByID(_ context.Context, id string) (models.CollectionPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return models.CollectionPayment{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memPayments) MarkPaid(_ context.Context, id string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Status = status
	p.AdvanceStatus = status
	m.rows[id] = p
	return nil
}

// fakeGateway scripts the external gateway.
type fakeGateway struct {
	mu          sync.Mutex
	orders      []gateway.Order
	payments    map[string]gateway.Payment
	validSig    map[string]bool // "orderID|paymentID|sig" -> ok
	createErr   error
	fetchErr    error
	nextOrderID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:    make(map[string]gateway.Payment),
		validSig:    make(map[string]bool),
		nextOrderID: "order_1",
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency string) (gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return gateway.Order{}, g.createErr
	}
	o := gateway.Order{ID: g.nextOrderID, Amount: amount, Currency: currency, Status: "created"}
	g.orders = append(g.orders, o)
	return o, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return gateway.Payment{}, g.fetchErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return gateway.Payment{}, gateway.ErrUnavailable
	}
	return p, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, sig string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validSig[orderID+"|"+paymentID+"|"+sig]
}

func (g *fakeGateway) allow(orderID, paymentID, sig string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validSig[orderID+"|"+paymentID+"|"+sig] = true
}

func (g *fakeGateway) capture(paymentID, orderID string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[paymentID] = gateway.Payment{ID: paymentID, OrderID: orderID, Amount: amount, Status: "captured"}
}
