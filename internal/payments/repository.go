package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPaymentByReference(ctx context.Context, gatewayRef string) (*Payment, error)
	GetSettledPayment(ctx context.Context, bookingID, userID uuid.UUID) (*Payment, error)
	ListBookingPayments(ctx context.Context, bookingID uuid.UUID) ([]Payment, error)

	// TransitionState is a compare-and-swap on the payment state, the
	// idempotency guard against replayed gateway events.
	TransitionState(ctx context.Context, paymentID uuid.UUID, from, to State) (bool, error)

	// RecordRefund raises amount_refunded to refundedTotal and moves the state
	// to refunded or partially_refunded depending on what remains. A total at
	// or below the recorded figure is a replayed confirmation: the row is left
	// untouched and applied is false. One transaction.
	RecordRefund(ctx context.Context, paymentID uuid.UUID, refundedTotal float64) (state State, applied bool, err error)

	// ApplyWalletTransaction locks the wallet row, validates the balance for
	// debits, appends the ledger entry and updates the balance as one atomic
	// unit. The wallet is created on first use.
	ApplyWalletTransaction(ctx context.Context, userID uuid.UUID, txType TransactionType, amount float64, reference string) (*WalletTransaction, error)

	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	ListWalletTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]WalletTransaction, error)

	CreateInvoice(ctx context.Context, invoice *Invoice) error
	GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreatePayment(ctx context.Context, payment *Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) GetPaymentByReference(ctx context.Context, gatewayRef string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("gateway_reference = ?", gatewayRef).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetSettledPayment(ctx context.Context, bookingID, userID uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND user_id = ?", bookingID, userID).
		Where("state IN ?", []State{StateSucceeded, StatePartiallyRefunded}).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListBookingPayments(ctx context.Context, bookingID uuid.UUID) ([]Payment, error) {
	var result []Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at").
		Find(&result).Error
	return result, err
}

func (r *repository) TransitionState(ctx context.Context, paymentID uuid.UUID, from, to State) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND state = ?", paymentID, from).
		Updates(map[string]interface{}{"state": to, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) RecordRefund(ctx context.Context, paymentID uuid.UUID, refundedTotal float64) (State, bool, error) {
	var (
		finalState State
		applied    bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", paymentID).
			First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if refundedTotal > payment.Amount+0.005 {
			return fmt.Errorf("%w: refund total %.2f exceeds payment amount %.2f",
				ErrInvalidState, refundedTotal, payment.Amount)
		}
		if refundedTotal <= payment.AmountRefunded+0.005 {
			// Replayed confirmation: the recorded total already covers it.
			finalState = payment.State
			return nil
		}

		target := StatePartiallyRefunded
		if refundedTotal >= payment.Amount-0.005 {
			target = StateRefunded
		}
		if !payment.State.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, payment.State, target)
		}

		err = tx.Model(&Payment{}).
			Where("id = ?", paymentID).
			Updates(map[string]interface{}{
				"amount_refunded": refundedTotal,
				"state":           target,
				"updated_at":      time.Now(),
			}).Error
		if err != nil {
			return err
		}
		finalState = target
		applied = true
		return nil
	})
	return finalState, applied, err
}

func (r *repository) ApplyWalletTransaction(ctx context.Context, userID uuid.UUID, txType TransactionType, amount float64, reference string) (*WalletTransaction, error) {
	var entry *WalletTransaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}

		delta := amount * txType.Sign()
		if txType == TransactionAdjustment {
			delta = amount // adjustments are signed by the caller
		}
		newBalance := math.Round((wallet.Balance+delta)*100) / 100
		if newBalance < 0 {
			return fmt.Errorf("%w: balance %.2f, change %.2f", ErrInsufficientFunds, wallet.Balance, delta)
		}

		entry = &WalletTransaction{
			WalletID:     wallet.ID,
			Type:         txType,
			Amount:       amount,
			BalanceAfter: newBalance,
			Reference:    reference,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		err = tx.Model(&Wallet{}).
			Where("id = ?", wallet.ID).
			Updates(map[string]interface{}{"balance": newBalance, "updated_at": time.Now()}).Error
		if err != nil {
			return fmt.Errorf("failed to update wallet balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// lockWallet fetches the wallet FOR UPDATE, creating it on first use. The row
// lock serializes all mutations to one wallet.
func lockWallet(tx *gorm.DB, userID uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = Wallet{UserID: userID}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		// Re-read under lock so concurrent first-use creates serialize.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&wallet).Error
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) ListWalletTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]WalletTransaction, error) {
	wallet, err := r.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var entries []WalletTransaction
	err = r.db.WithContext(ctx).
		Where("wallet_id = ?", wallet.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) GetInvoiceByPayment(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	var invoice Invoice
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
