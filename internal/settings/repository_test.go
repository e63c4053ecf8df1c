package settings

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupSettingsMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestRepository_Get(t *testing.T) {
	repo, mock, close := setupSettingsMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM system_config WHERE key = $1")).
		WithArgs(KeyWeeklyBookingLimit).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("25"))

	v, err := repo.Get(context.Background(), KeyWeeklyBookingLimit)
	require.NoError(t, err)
	require.Equal(t, "25", v)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM system_config WHERE key = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSettingNotFound)
}

func TestRepository_SetAndAll(t *testing.T) {
	repo, mock, close := setupSettingsMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO system_config (key, value, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()")).
		WithArgs(KeyGraceTimeHours, "48").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), KeyGraceTimeHours, "48"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, updated_at FROM system_config ORDER BY key")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
			AddRow(KeyGraceTimeHours, "48", time.Now()).
			AddRow(KeyWeeklyBookingLimit, "25", time.Now()))

	rows, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
