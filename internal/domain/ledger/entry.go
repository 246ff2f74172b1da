package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind labels why a ledger entry exists
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindHold    Kind = "hold"
	KindRelease Kind = "release"
	KindRefund  Kind = "refund"
)

var (
	ErrZeroAmount    = errors.New("ledger amount must be non-zero")
	ErrAmountSign    = errors.New("ledger amount sign does not match entry kind")
	ErrUnknownKind   = errors.New("unknown ledger entry kind")
	ErrMissingOrder  = errors.New("order reference is required for this entry kind")
	ErrInvalidUserID = errors.New("ledger entry requires a user")
)

// Entry is an immutable signed movement of TON for one user. A user's balance
// is the sum of all their entries.
type Entry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	OrderID   *int64          `json:"order_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      Kind            `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry validates the sign convention for kind: holds are negative, every
// other kind is positive.
func NewEntry(userID int64, orderID *int64, amount decimal.Decimal, kind Kind) (*Entry, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}

	switch kind {
	case KindHold:
		if !amount.IsNegative() {
			return nil, ErrAmountSign
		}
	case KindDeposit, KindRelease, KindRefund:
		if !amount.IsPositive() {
			return nil, ErrAmountSign
		}
	default:
		return nil, ErrUnknownKind
	}

	if kind != KindDeposit && orderID == nil {
		return nil, ErrMissingOrder
	}

	return &Entry{
		UserID:    userID,
		OrderID:   orderID,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: time.Now(),
	}, nil
}

// NewHold debits the buyer for a purchase attempt
func NewHold(buyerID, orderID int64, price decimal.Decimal) (*Entry, error) {
	return NewEntry(buyerID, &orderID, price.Neg(), KindHold)
}

// NewRefund credits a hold back to the buyer
func NewRefund(buyerID, orderID int64, price decimal.Decimal) (*Entry, error) {
	return NewEntry(buyerID, &orderID, price, KindRefund)
}

// NewRelease pays the seller for a completed order
func NewRelease(sellerID, orderID int64, price decimal.Decimal) (*Entry, error) {
	return NewEntry(sellerID, &orderID, price, KindRelease)
}

// NewDeposit credits an on-chain transfer
func NewDeposit(userID int64, amount decimal.Decimal) (*Entry, error) {
	return NewEntry(userID, nil, amount, KindDeposit)
}

// Sum folds entry amounts into a balance
func Sum(entries []*Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
