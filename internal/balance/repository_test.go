package balance

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBalanceMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestAppend(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	reservationID, packageID := 11, 4
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO balance_transactions (user_id, type, amount, description, reservation_id, user_package_id, payment_reference)")).
		WithArgs(2, TypeDebit, -1, "Rueda 2025-01-08 07:00", &reservationID, &packageID, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(31, now))

	tx := &Transaction{
		UserID:        2,
		Type:          TypeDebit,
		Amount:        -1,
		Description:   "Rueda 2025-01-08 07:00",
		ReservationID: &reservationID,
		UserPackageID: &packageID,
	}
	require.NoError(t, repo.Append(context.Background(), tx))
	assert.Equal(t, 31, tx.ID)
	assert.Equal(t, now, tx.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshBalance(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_account_balance (user_id, classes_available, classes_used, updated_at) SELECT $1, COALESCE(SUM(classes_remaining), 0), COALESCE(SUM(classes_used), 0), NOW() FROM user_packages WHERE user_id = $1 AND is_active = true ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "classes_available", "classes_used", "updated_at"}).AddRow(2, 9, 1, time.Now()))

	b, err := repo.RefreshBalance(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 9, b.ClassesAvailable)
	assert.Equal(t, 1, b.ClassesUsed)
}

func TestRefreshBalance_Error(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_account_balance")).
		WithArgs(2).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.RefreshBalance(context.Background(), 2)
	assert.Error(t, err)
}

func TestGetBalance_NoRowYet(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_account_balance WHERE user_id = $1")).
		WithArgs(5).
		WillReturnError(sql.ErrNoRows)

	b, err := repo.GetBalance(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, &AccountBalance{UserID: 5}, b)
}

func TestListTransactions_DefaultLimit(t *testing.T) {
	repo, mock, close := setupBalanceMock(t)
	defer close()

	cols := []string{"id", "user_id", "type", "amount", "description", "reservation_id", "user_package_id", "payment_reference", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM balance_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")).
		WithArgs(2, 50, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, 2, "single_class_paid", 1, "paid", 9, nil, "pay_123", time.Now()).
			AddRow(1, 2, "purchase", 10, "10 classes", nil, 4, nil, time.Now()))

	txs, err := repo.ListTransactions(context.Background(), 2, 0, -3)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, TypeSingleClassPaid, txs[0].Type)
	require.NotNil(t, txs[0].PaymentReference)
	assert.Equal(t, "pay_123", *txs[0].PaymentReference)
	assert.Nil(t, txs[1].ReservationID)
}
