package payments

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo mirrors the gorm repository contract in memory, including the
// balance check inside the wallet transaction.
type memoryRepo struct {
	mu           sync.Mutex
	payments     map[uuid.UUID]*Payment
	byReference  map[string]uuid.UUID
	wallets      map[uuid.UUID]*Wallet
	transactions map[uuid.UUID][]WalletTransaction
	invoices     map[uuid.UUID]*Invoice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		payments:     make(map[uuid.UUID]*Payment),
		byReference:  make(map[string]uuid.UUID),
		wallets:      make(map[uuid.UUID]*Wallet),
		transactions: make(map[uuid.UUID][]WalletTransaction),
		invoices:     make(map[uuid.UUID]*Invoice),
	}
}

func (m *memoryRepo) CreatePayment(ctx context.Context, payment *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment.ID = uuid.New()
	m.payments[payment.ID] = payment
	if payment.GatewayReference != "" {
		m.byReference[payment.GatewayReference] = payment.ID
	}
	return nil
}

func (m *memoryRepo) GetPaymentByReference(ctx context.Context, gatewayRef string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byReference[gatewayRef]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m.payments[id]
	return &copied, nil
}

func (m *memoryRepo) GetSettledPayment(ctx context.Context, bookingID, userID uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.UserID == userID &&
			(p.State == StateSucceeded || p.State == StatePartiallyRefunded) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) ListBookingPayments(ctx context.Context, bookingID uuid.UUID) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Payment
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *memoryRepo) TransitionState(ctx context.Context, paymentID uuid.UUID, from, to State) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.State != from {
		return false, nil
	}
	p.State = to
	return true, nil
}

func (m *memoryRepo) RecordRefund(ctx context.Context, paymentID uuid.UUID, refundedTotal float64) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return "", false, ErrNotFound
	}
	if refundedTotal > p.Amount+0.005 {
		return "", false, ErrInvalidState
	}
	if refundedTotal <= p.AmountRefunded+0.005 {
		return p.State, false, nil
	}
	target := StatePartiallyRefunded
	if refundedTotal >= p.Amount-0.005 {
		target = StateRefunded
	}
	if !p.State.CanTransitionTo(target) {
		return "", false, ErrInvalidState
	}
	p.AmountRefunded = refundedTotal
	p.State = target
	return target, true, nil
}

func (m *memoryRepo) ApplyWalletTransaction(ctx context.Context, userID uuid.UUID, txType TransactionType, amount float64, reference string) (*WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[userID]
	if !ok {
		wallet = &Wallet{ID: uuid.New(), UserID: userID}
		m.wallets[userID] = wallet
	}

	delta := amount * txType.Sign()
	if txType == TransactionAdjustment {
		delta = amount
	}
	newBalance := math.Round((wallet.Balance+delta)*100) / 100
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	entry := WalletTransaction{
		ID:           uuid.New(),
		WalletID:     wallet.ID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: newBalance,
		Reference:    reference,
		CreatedAt:    time.Now(),
	}
	wallet.Balance = newBalance
	m.transactions[wallet.ID] = append(m.transactions[wallet.ID], entry)
	return &entry, nil
}

func (m *memoryRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *wallet
	return &copied, nil
}

func (m *memoryRepo) ListWalletTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]WalletTransaction(nil), m.transactions[wallet.ID]...), nil
}

func (m *memoryRepo) CreateInvoice(ctx context.Context, invoice *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice.ID = uuid.New()
	m.invoices[invoice.PaymentID] = invoice
	return nil
}

func (m *memoryRepo) GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice, ok := m.invoices[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	return invoice, nil
}

// recordingLifecycle counts booking settlement callbacks.
type recordingLifecycle struct {
	mu       sync.Mutex
	paid     []uuid.UUID
	refunded []uuid.UUID
}

func (r *recordingLifecycle) MarkPlayerPaid(ctx context.Context, bookingID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid = append(r.paid, userID)
	return true, nil
}

func (r *recordingLifecycle) MarkPlayerRefunded(ctx context.Context, bookingID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunded = append(r.refunded, userID)
	return nil
}

// recordingGateway captures refund requests without confirming them.
type recordingGateway struct {
	requests []float64
}

func (r *recordingGateway) RequestRefund(ctx context.Context, gatewayRef string, amount float64) error {
	r.requests = append(r.requests, amount)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingDispatcher) Emit(ctx context.Context, eventType string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func (r *recordingDispatcher) Close() error { return nil }

func (r *recordingDispatcher) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type settlementFixture struct {
	service    Service
	repo       *memoryRepo
	lifecycle  *recordingLifecycle
	gateway    *recordingGateway
	dispatcher *recordingDispatcher
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	f := &settlementFixture{
		repo:       newMemoryRepo(),
		lifecycle:  &recordingLifecycle{},
		gateway:    &recordingGateway{},
		dispatcher: &recordingDispatcher{},
	}
	f.service = NewService(f.repo, f.gateway, f.dispatcher)
	f.service.SetBookingService(f.lifecycle)
	return f
}

func TestWalletLedgerChain(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.TopUpConfirmed(ctx, user, 50.00, "topup-1")
	require.NoError(t, err)
	_, err = f.service.DeductWallet(ctx, user, 20.00, "booking-1")
	require.NoError(t, err)
	_, err = f.repo.ApplyWalletTransaction(ctx, user, TransactionRefund, 20.00, "refund:booking-1")
	require.NoError(t, err)

	wallet, err := f.service.GetWallet(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 50.00, wallet.Balance)

	entries, err := f.service.ListWalletTransactions(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 50.00, entries[0].BalanceAfter)
	assert.Equal(t, 30.00, entries[1].BalanceAfter)
	assert.Equal(t, 50.00, entries[2].BalanceAfter)
}

func TestDeductWalletInsufficientFunds(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.TopUpConfirmed(ctx, user, 10.00, "topup")
	require.NoError(t, err)

	_, err = f.service.DeductWallet(ctx, user, 20.00, "booking")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed debit must leave no ledger trace.
	entries, err := f.service.ListWalletTransactions(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	wallet, _ := f.service.GetWallet(ctx, user)
	assert.Equal(t, 10.00, wallet.Balance)
}

func TestAdjustWalletCannotOverdraw(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.service.TopUpConfirmed(ctx, user, 5.00, "topup")
	require.NoError(t, err)

	_, err = f.service.AdjustWallet(ctx, user, -10.00, "goodwill gone wrong")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.service.AdjustWallet(ctx, user, -3.00, "correction")
	require.NoError(t, err)
	wallet, _ := f.service.GetWallet(ctx, user)
	assert.Equal(t, 2.00, wallet.Balance)
}

func TestRecordGatewaySuccessIdempotent(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	bookingID, userID := uuid.New(), uuid.New()

	payment, err := f.service.CreateCardPayment(ctx, bookingID, userID, 18.00, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatePending, payment.State)

	require.NoError(t, f.service.RecordGatewaySuccess(ctx, "pi_123"))
	require.NoError(t, f.service.RecordGatewaySuccess(ctx, "pi_123")) // replay

	assert.Len(t, f.lifecycle.paid, 1)
	assert.Equal(t, 1, f.dispatcher.count("payment.receipt_due"))

	stored, err := f.repo.GetPaymentByReference(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, stored.State)

	invoice, err := f.service.GetInvoiceByPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, 18.00, invoice.Amount)
}

func TestRecordRefundConfirmedIdempotent(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	bookingID, userID := uuid.New(), uuid.New()

	_, err := f.service.CreateCardPayment(ctx, bookingID, userID, 40.00, "pi_refund")
	require.NoError(t, err)
	require.NoError(t, f.service.RecordGatewaySuccess(ctx, "pi_refund"))

	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_refund", 10.00))
	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_refund", 10.00)) // replay

	stored, _ := f.repo.GetPaymentByReference(ctx, "pi_refund")
	assert.Equal(t, 10.00, stored.AmountRefunded)
	assert.Equal(t, StatePartiallyRefunded, stored.State)

	// A later confirmation raises the total to the full amount.
	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_refund", 40.00))
	stored, _ = f.repo.GetPaymentByReference(ctx, "pi_refund")
	assert.Equal(t, 40.00, stored.AmountRefunded)
	assert.Equal(t, StateRefunded, stored.State)
	assert.Len(t, f.lifecycle.refunded, 1)

	// Stale re-deliveries after full settlement change nothing.
	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_refund", 10.00))
	stored, _ = f.repo.GetPaymentByReference(ctx, "pi_refund")
	assert.Equal(t, 40.00, stored.AmountRefunded)
	assert.Len(t, f.lifecycle.refunded, 1)
}

func TestRecordGatewayFailure(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateCardPayment(ctx, uuid.New(), uuid.New(), 18.00, "pi_bad")
	require.NoError(t, err)

	require.NoError(t, f.service.RecordGatewayFailure(ctx, "pi_bad"))
	require.NoError(t, f.service.RecordGatewayFailure(ctx, "pi_bad")) // replay

	assert.Equal(t, 1, f.dispatcher.count("payment.failed"))
	assert.Empty(t, f.lifecycle.paid)

	stored, _ := f.repo.GetPaymentByReference(ctx, "pi_bad")
	assert.Equal(t, StateFailed, stored.State)
}

func TestRefundPlayerWalletPath(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	bookingID, userID := uuid.New(), uuid.New()

	_, err := f.service.TopUpConfirmed(ctx, userID, 30.00, "topup")
	require.NoError(t, err)
	payment, err := f.service.PayShareFromWallet(ctx, bookingID, userID, 18.00)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, payment.State)
	assert.Len(t, f.lifecycle.paid, 1)

	require.NoError(t, f.service.RefundPlayer(ctx, bookingID, userID, 18.00, "cancelled"))

	// Wallet refunds settle immediately.
	wallet, _ := f.service.GetWallet(ctx, userID)
	assert.Equal(t, 30.00, wallet.Balance)
	assert.Len(t, f.lifecycle.refunded, 1)
	assert.Empty(t, f.gateway.requests)
}

func TestRefundPlayerCardWaitsForConfirmation(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	bookingID, userID := uuid.New(), uuid.New()

	_, err := f.service.CreateCardPayment(ctx, bookingID, userID, 18.00, "pi_card")
	require.NoError(t, err)
	require.NoError(t, f.service.RecordGatewaySuccess(ctx, "pi_card"))

	require.NoError(t, f.service.RefundPlayer(ctx, bookingID, userID, 18.00, "cancelled"))

	// Request sent, but nothing marked until the processor confirms.
	assert.Equal(t, []float64{18.00}, f.gateway.requests)
	stored, _ := f.repo.GetPaymentByReference(ctx, "pi_card")
	assert.Equal(t, StateSucceeded, stored.State)
	assert.Empty(t, f.lifecycle.refunded)

	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_card", 18.00))
	stored, _ = f.repo.GetPaymentByReference(ctx, "pi_card")
	assert.Equal(t, StateRefunded, stored.State)
	assert.Len(t, f.lifecycle.refunded, 1)
}

func TestPartialRefundKeepsPlayerPaid(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateCardPayment(ctx, uuid.New(), uuid.New(), 20.00, "pi_part")
	require.NoError(t, err)
	require.NoError(t, f.service.RecordGatewaySuccess(ctx, "pi_part"))

	require.NoError(t, f.service.RecordRefundConfirmed(ctx, "pi_part", 5.00))

	stored, _ := f.repo.GetPaymentByReference(ctx, "pi_part")
	assert.Equal(t, StatePartiallyRefunded, stored.State)
	assert.Equal(t, 5.00, stored.AmountRefunded)
	assert.Empty(t, f.lifecycle.refunded)
}

func TestPaymentStateMachine(t *testing.T) {
	assert.True(t, StatePending.CanTransitionTo(StateSucceeded))
	assert.True(t, StatePending.CanTransitionTo(StateFailed))
	assert.False(t, StatePending.CanTransitionTo(StateRefunded))
	assert.True(t, StateSucceeded.CanTransitionTo(StatePartiallyRefunded))
	assert.True(t, StatePartiallyRefunded.CanTransitionTo(StateRefunded))
	assert.False(t, StateFailed.CanTransitionTo(StateSucceeded))
	assert.False(t, StateRefunded.CanTransitionTo(StateSucceeded))
}
