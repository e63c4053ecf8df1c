package classes

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classColumns = []string{"id", "class_type_id", "class_name", "instructor_id", "date", "time", "max_capacity", "available_spots", "status", "created_at"}

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestGetByID(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM scheduled_classes sc JOIN class_types ct ON ct.id = sc.class_type_id WHERE sc.id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(classColumns).AddRow(7, 1, "Rueda", nil, day, "07:00:00", 10, 4, "scheduled", time.Now()))

	class, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Rueda", class.ClassName)
	assert.Equal(t, 4, class.AvailableSpots)
	assert.True(t, class.IsBookable())

	start, err := class.StartsAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 8, 7, 0, 0, 0, time.UTC), start)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sc.id = $1")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestGetByIDForUpdate(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sc.id = $1 FOR UPDATE OF sc")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(classColumns).AddRow(7, 1, "Rueda", 3, time.Now(), "07:00", 10, 0, "scheduled", time.Now()))

	class, err := repo.GetByIDForUpdate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, class.AvailableSpots)
	require.NotNil(t, class.InstructorID)
	assert.Equal(t, 3, *class.InstructorID)
}

func TestDecrementAvailableSpots(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	query := regexp.QuoteMeta("UPDATE scheduled_classes SET available_spots = available_spots - 1 WHERE id = $1 AND available_spots > 0")

	mock.ExpectExec(query).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DecrementAvailableSpots(context.Background(), 7))

	mock.ExpectExec(query).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DecrementAvailableSpots(context.Background(), 7), ErrNoSpotsLeft)
}

func TestIncrementAvailableSpots(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	query := regexp.QuoteMeta("UPDATE scheduled_classes SET available_spots = available_spots + 1 WHERE id = $1 AND available_spots < max_capacity")

	mock.ExpectExec(query).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementAvailableSpots(context.Background(), 7))

	mock.ExpectExec(query).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.IncrementAvailableSpots(context.Background(), 7), ErrAtFullCapacity)
}

func TestIsBookable(t *testing.T) {
	assert.False(t, (&ScheduledClass{Status: "cancelled"}).IsBookable())
	assert.True(t, (&ScheduledClass{Status: StatusScheduled}).IsBookable())
}
