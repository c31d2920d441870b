package payments

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"courtly/internal/notifications"
)

// BookingLifecycle is the slice of the booking engine settlement mutates when
// money state changes. Wired via setter so payments and bookings stay
// independent packages.
type BookingLifecycle interface {
	MarkPlayerPaid(ctx context.Context, bookingID, userID uuid.UUID) (bool, error)
	MarkPlayerRefunded(ctx context.Context, bookingID, userID uuid.UUID) error
}

// Service reconciles gateway events and the wallet ledger against booking
// payment state. Its invariant: a booking is only confirmed through
// MarkPlayerPaid once the money is actually settled.
type Service interface {
	SetBookingService(bookings BookingLifecycle)
	SetClock(now func() time.Time)

	// Intents.
	CreateCardPayment(ctx context.Context, bookingID, userID uuid.UUID, amount float64, gatewayRef string) (*Payment, error)
	PayShareFromWallet(ctx context.Context, bookingID, userID uuid.UUID, amount float64) (*Payment, error)

	// Gateway event entry points. Idempotent under re-delivery. Refund
	// confirmations carry the gateway's cumulative refunded-to-date total, so
	// a replayed event never moves amount_refunded.
	RecordGatewaySuccess(ctx context.Context, gatewayRef string) error
	RecordGatewayFailure(ctx context.Context, gatewayRef string) error
	RecordRefundConfirmed(ctx context.Context, gatewayRef string, refundedTotal float64) error

	// RefundPlayer routes a refund to the original payment method: wallet
	// refunds settle immediately, card refunds go to the gateway and settle
	// when the confirmation event arrives.
	RefundPlayer(ctx context.Context, bookingID, userID uuid.UUID, amount float64, reason string) error

	// Wallet ledger.
	TopUpConfirmed(ctx context.Context, userID uuid.UUID, amount float64, reference string) (*WalletTransaction, error)
	DeductWallet(ctx context.Context, userID uuid.UUID, amount float64, reference string) (*WalletTransaction, error)
	AdjustWallet(ctx context.Context, userID uuid.UUID, signedAmount float64, reference string) (*WalletTransaction, error)
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	ListWalletTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]WalletTransaction, error)

	GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error)
}

type service struct {
	repo       Repository
	gateway    Gateway
	dispatcher notifications.Dispatcher
	bookings   BookingLifecycle
	now        func() time.Time
}

func NewService(repo Repository, gateway Gateway, dispatcher notifications.Dispatcher) Service {
	return &service{
		repo:       repo,
		gateway:    gateway,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *service) SetBookingService(bookings BookingLifecycle) { s.bookings = bookings }

func (s *service) SetClock(now func() time.Time) { s.now = now }

func (s *service) CreateCardPayment(ctx context.Context, bookingID, userID uuid.UUID, amount float64, gatewayRef string) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	payment := &Payment{
		BookingID:        bookingID,
		UserID:           userID,
		Method:           MethodCard,
		GatewayReference: gatewayRef,
		Amount:           amount,
		State:            StatePending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

// PayShareFromWallet settles a booking share from prepaid credit: debit,
// payment record and booking update in that order. The debit is the atomic
// balance-checked step; everything after it reconciles money already moved.
func (s *service) PayShareFromWallet(ctx context.Context, bookingID, userID uuid.UUID, amount float64) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	entry, err := s.repo.ApplyWalletTransaction(ctx, userID, TransactionDebit, amount,
		fmt.Sprintf("booking:%s", bookingID))
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		BookingID: bookingID,
		UserID:    userID,
		Method:    MethodWallet,
		Amount:    amount,
		State:     StateSucceeded,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("wallet debited (ledger %s) but payment record failed: %w", entry.ID, err)
	}

	s.settlePayment(ctx, payment)
	return payment, nil
}

func (s *service) RecordGatewaySuccess(ctx context.Context, gatewayRef string) error {
	payment, err := s.repo.GetPaymentByReference(ctx, gatewayRef)
	if err != nil {
		return err
	}

	applied, err := s.repo.TransitionState(ctx, payment.ID, StatePending, StateSucceeded)
	if err != nil {
		return err
	}
	if !applied {
		// Replayed delivery; the first one did the work.
		return nil
	}

	s.settlePayment(ctx, payment)
	return nil
}

func (s *service) RecordGatewayFailure(ctx context.Context, gatewayRef string) error {
	payment, err := s.repo.GetPaymentByReference(ctx, gatewayRef)
	if err != nil {
		return err
	}

	applied, err := s.repo.TransitionState(ctx, payment.ID, StatePending, StateFailed)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.emit(ctx, notifications.EventPaymentFailed, map[string]interface{}{
		"booking_id": payment.BookingID.String(),
		"user_id":    payment.UserID.String(),
		"amount":     payment.Amount,
		"reference":  gatewayRef,
	})
	return nil
}

func (s *service) RecordRefundConfirmed(ctx context.Context, gatewayRef string, refundedTotal float64) error {
	if refundedTotal <= 0 {
		return ErrInvalidAmount
	}
	payment, err := s.repo.GetPaymentByReference(ctx, gatewayRef)
	if err != nil {
		return err
	}

	state, applied, err := s.repo.RecordRefund(ctx, payment.ID, refundedTotal)
	if err != nil {
		return err
	}
	if !applied {
		// Replayed delivery; the first one did the work.
		return nil
	}

	if state == StateRefunded && s.bookings != nil {
		if err := s.bookings.MarkPlayerRefunded(ctx, payment.BookingID, payment.UserID); err != nil {
			log.Printf("refund settled but booking update failed for %s: %v", payment.BookingID, err)
		}
	}
	return nil
}

func (s *service) RefundPlayer(ctx context.Context, bookingID, userID uuid.UUID, amount float64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	payment, err := s.repo.GetSettledPayment(ctx, bookingID, userID)
	if err != nil {
		return err
	}

	if payment.Method == MethodWallet {
		_, err := s.repo.ApplyWalletTransaction(ctx, userID, TransactionRefund, amount,
			fmt.Sprintf("refund:%s", bookingID))
		if err != nil {
			return err
		}
		state, _, err := s.repo.RecordRefund(ctx, payment.ID, payment.AmountRefunded+amount)
		if err != nil {
			return err
		}
		if state == StateRefunded && s.bookings != nil {
			if err := s.bookings.MarkPlayerRefunded(ctx, bookingID, userID); err != nil {
				log.Printf("wallet refund settled but booking update failed for %s: %v", bookingID, err)
			}
		}
		return nil
	}

	// Card: ask the gateway and wait for its confirmation event. Marking the
	// payment refunded here would claim money moved before it did.
	if err := s.gateway.RequestRefund(ctx, payment.GatewayReference, amount); err != nil {
		return fmt.Errorf("gateway refund request failed: %w", err)
	}
	return nil
}

func (s *service) TopUpConfirmed(ctx context.Context, userID uuid.UUID, amount float64, reference string) (*WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.ApplyWalletTransaction(ctx, userID, TransactionTopUp, amount, reference)
}

func (s *service) DeductWallet(ctx context.Context, userID uuid.UUID, amount float64, reference string) (*WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.ApplyWalletTransaction(ctx, userID, TransactionDebit, amount, reference)
}

func (s *service) AdjustWallet(ctx context.Context, userID uuid.UUID, signedAmount float64, reference string) (*WalletTransaction, error) {
	if signedAmount == 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.ApplyWalletTransaction(ctx, userID, TransactionAdjustment, signedAmount, reference)
}

func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

func (s *service) ListWalletTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListWalletTransactions(ctx, userID, limit)
}

func (s *service) GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoiceByPayment(ctx, paymentID)
}

// settlePayment propagates a settled payment: booking player marked paid, an
// invoice issued, a receipt event emitted. The payment state is already
// committed when this runs.
func (s *service) settlePayment(ctx context.Context, payment *Payment) {
	if s.bookings != nil {
		if _, err := s.bookings.MarkPlayerPaid(ctx, payment.BookingID, payment.UserID); err != nil {
			log.Printf("payment settled but booking update failed for %s: %v", payment.BookingID, err)
		}
	}

	issuedAt := s.now()
	invoice := &Invoice{
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		UserID:    payment.UserID,
		Number:    InvoiceNumber(issuedAt, payment.ID),
		Amount:    payment.Amount,
		IssuedAt:  issuedAt,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		log.Printf("failed to issue invoice for payment %s: %v", payment.ID, err)
	}

	s.emit(ctx, notifications.EventPaymentReceiptDue, map[string]interface{}{
		"booking_id": payment.BookingID.String(),
		"user_id":    payment.UserID.String(),
		"amount":     payment.Amount,
		"invoice":    invoice.Number,
	})
}

func (s *service) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Emit(ctx, eventType, payload); err != nil {
		log.Printf("failed to emit %s: %v", eventType, err)
	}
}
