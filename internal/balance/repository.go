package balance

import (
	"context"
	"database/sql"
	"errors"

	"innata/internal/db"

	"github.com/jmoiron/sqlx"
)

const defaultPageSize = 50

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, tx *Transaction) error {
	return db.GetExecutor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO balance_transactions (user_id, type, amount, description, reservation_id, user_package_id, payment_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, tx.UserID, tx.Type, tx.Amount, tx.Description, tx.ReservationID, tx.UserPackageID, tx.PaymentReference,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// RefreshBalance recomputes the cached balance from the user's active packages.
// Inside a transaction it sees that transaction's own package updates.
func (r *repository) RefreshBalance(ctx context.Context, userID int) (*AccountBalance, error) {
	var b AccountBalance
	err := db.GetExecutor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO user_account_balance (user_id, classes_available, classes_used, updated_at)
		SELECT $1, COALESCE(SUM(classes_remaining), 0), COALESCE(SUM(classes_used), 0), NOW()
		FROM user_packages
		WHERE user_id = $1 AND is_active = true
		ON CONFLICT (user_id) DO UPDATE
		SET classes_available = EXCLUDED.classes_available,
		    classes_used = EXCLUDED.classes_used,
		    updated_at = NOW()
		RETURNING user_id, classes_available, classes_used, updated_at
	`, userID).StructScan(&b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetBalance(ctx context.Context, userID int) (*AccountBalance, error) {
	var b AccountBalance
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &b, `
		SELECT user_id, classes_available, classes_used, updated_at
		FROM user_account_balance
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &AccountBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	txs := []Transaction{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &txs, `
		SELECT id, user_id, type, amount, description, reservation_id, user_package_id, payment_reference, created_at
		FROM balance_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}
