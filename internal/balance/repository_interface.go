package balance

import "context"

// Repository has no update or delete for transactions; corrections are new rows.
type Repository interface {
	Append(ctx context.Context, tx *Transaction) error
	RefreshBalance(ctx context.Context, userID int) (*AccountBalance, error)
	GetBalance(ctx context.Context, userID int) (*AccountBalance, error)
	ListTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}
