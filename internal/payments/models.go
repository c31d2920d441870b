package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a payment record's lifecycle state.
type State string

const (
	StatePending           State = "pending"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
	StateRefunded          State = "refunded"
	StatePartiallyRefunded State = "partially_refunded"
)

// IsValid checks if the state is a known value.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateSucceeded, StateFailed, StateRefunded, StatePartiallyRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks the payment state machine. Refunds only leave a
// settled payment; a failed payment is terminal.
func (s State) CanTransitionTo(target State) bool {
	transitions := map[State][]State{
		StatePending:           {StateSucceeded, StateFailed},
		StateSucceeded:         {StateRefunded, StatePartiallyRefunded},
		StatePartiallyRefunded: {StateRefunded, StatePartiallyRefunded},
		StateFailed:            {},
		StateRefunded:          {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Method distinguishes wallet credit from card payments through the gateway.
type Method string

const (
	MethodWallet Method = "wallet"
	MethodCard   Method = "card"
)

// IsValid checks if the method is a known value.
func (m Method) IsValid() bool {
	return m == MethodWallet || m == MethodCard
}

// Payment is one player's money movement for one booking share.
type Payment struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID        uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index:idx_payments_booking_user"`
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_payments_booking_user"`
	Method           Method    `json:"method" gorm:"type:varchar(12);not null"`
	GatewayReference string    `json:"gateway_reference,omitempty" gorm:"uniqueIndex:uq_payments_gateway_ref,where:gateway_reference <> ''"`
	Amount           float64   `json:"amount" gorm:"not null"`
	AmountRefunded   float64   `json:"amount_refunded" gorm:"not null;default:0"`
	State            State     `json:"state" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TransactionType classifies wallet ledger entries.
type TransactionType string

const (
	TransactionTopUp      TransactionType = "top_up"
	TransactionDebit      TransactionType = "debit"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// IsValid checks if the transaction type is a known value.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTopUp, TransactionDebit, TransactionRefund, TransactionAdjustment:
		return true
	}
	return false
}

// Sign returns the balance direction for the type: debits subtract, top-ups
// and refunds add. Adjustments carry their own sign in the amount.
func (t TransactionType) Sign() float64 {
	if t == TransactionDebit {
		return -1
	}
	return 1
}

// Wallet is a user's prepaid credit balance. The balance column is a
// convenience mirror of the ledger; every change appends a transaction row.
type Wallet struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Balance   float64   `json:"balance" gorm:"not null;default:0"`
	Currency  string    `json:"currency" gorm:"type:varchar(3);not null;default:'GBP'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// WalletTransaction is one append-only ledger entry. BalanceAfter records the
// wallet balance the moment the entry committed, making the ledger auditable
// without replaying history.
type WalletTransaction struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID     uuid.UUID       `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Type         TransactionType `json:"type" gorm:"type:varchar(12);not null"`
	Amount       float64         `json:"amount" gorm:"not null"`
	BalanceAfter float64         `json:"balance_after" gorm:"not null"`
	Reference    string          `json:"reference,omitempty" gorm:"size:255"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// Invoice is the receipt issued once a payment settles.
type Invoice struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID uuid.UUID `json:"payment_id" gorm:"type:uuid;not null;uniqueIndex"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Number    string    `json:"number" gorm:"not null;uniqueIndex;size:32"`
	Amount    float64   `json:"amount" gorm:"not null"`
	Currency  string    `json:"currency" gorm:"type:varchar(3);not null;default:'GBP'"`
	IssuedAt  time.Time `json:"issued_at" gorm:"not null"`
}

func (Payment) TableName() string           { return "payments" }
func (Wallet) TableName() string            { return "wallets" }
func (WalletTransaction) TableName() string { return "wallet_transactions" }
func (Invoice) TableName() string           { return "invoices" }

// InvoiceNumber derives a stable human-readable invoice number.
func InvoiceNumber(issuedAt time.Time, paymentID uuid.UUID) string {
	return fmt.Sprintf("INV-%s-%s", issuedAt.Format("20060102"), paymentID.String()[:8])
}
