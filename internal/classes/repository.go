package classes

import (
	"context"
	"database/sql"
	"errors"

	"innata/internal/db"

	"github.com/jmoiron/sqlx"
)

var (
	ErrClassNotFound  = errors.New("scheduled class not found")
	ErrNoSpotsLeft    = errors.New("scheduled class has no available spots")
	ErrAtFullCapacity = errors.New("scheduled class already has all spots available")
)

const selectClass = `
	SELECT
		sc.id,
		sc.class_type_id,
		ct.name AS class_name,
		sc.instructor_id,
		sc.date,
		sc.time,
		sc.max_capacity,
		sc.available_spots,
		sc.status,
		sc.created_at
	FROM scheduled_classes sc
	JOIN class_types ct ON ct.id = sc.class_type_id
	WHERE sc.id = $1
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*ScheduledClass, error) {
	return r.get(ctx, selectClass, id)
}

// GetByIDForUpdate locks the class row until the surrounding transaction ends.
func (r *repository) GetByIDForUpdate(ctx context.Context, id int) (*ScheduledClass, error) {
	return r.get(ctx, selectClass+" FOR UPDATE OF sc", id)
}

func (r *repository) get(ctx context.Context, query string, id int) (*ScheduledClass, error) {
	var class ScheduledClass
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &class, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *repository) DecrementAvailableSpots(ctx context.Context, id int) error {
	return r.adjust(ctx, `
		UPDATE scheduled_classes
		SET available_spots = available_spots - 1
		WHERE id = $1 AND available_spots > 0
	`, id, ErrNoSpotsLeft)
}

func (r *repository) IncrementAvailableSpots(ctx context.Context, id int) error {
	return r.adjust(ctx, `
		UPDATE scheduled_classes
		SET available_spots = available_spots + 1
		WHERE id = $1 AND available_spots < max_capacity
	`, id, ErrAtFullCapacity)
}

func (r *repository) adjust(ctx context.Context, query string, id int, guardErr error) error {
	result, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return guardErr
	}
	return nil
}
