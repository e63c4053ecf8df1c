package balance

import "time"

type TransactionType string

const (
	TypeDebit           TransactionType = "debit"
	TypeSingleClassPaid TransactionType = "single_class_paid"
	TypePurchase        TransactionType = "purchase"
	TypeRefund          TransactionType = "refund"
)

// Transaction is an append-only ledger row. Amount is counted in classes.
type Transaction struct {
	ID               int             `db:"id" json:"id"`
	UserID           int             `db:"user_id" json:"user_id"`
	Type             TransactionType `db:"type" json:"type"`
	Amount           int             `db:"amount" json:"amount"`
	Description      string          `db:"description" json:"description"`
	ReservationID    *int            `db:"reservation_id" json:"reservation_id,omitempty"`
	UserPackageID    *int            `db:"user_package_id" json:"user_package_id,omitempty"`
	PaymentReference *string         `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// AccountBalance caches the sums of a user's active packages.
type AccountBalance struct {
	UserID           int       `db:"user_id" json:"user_id"`
	ClassesAvailable int       `db:"classes_available" json:"classes_available"`
	ClassesUsed      int       `db:"classes_used" json:"classes_used"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
