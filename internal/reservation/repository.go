package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"innata/internal/db"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSlotTaken           = errors.New("slot already taken for this class")
)

const (
	uniqueViolation    = "23505"
	confirmedSlotIndex = "reservations_confirmed_slot_idx"
	defaultListLimit   = 100
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var reservationColumns = []string{
	"r.id",
	"r.user_id",
	"r.scheduled_class_id",
	"r.user_package_id",
	"r.bike_number",
	"r.status",
	"r.payment_method",
	"r.payment_reference",
	"r.created_at",
	"r.updated_at",
	"ct.name AS class_name",
	"sc.date AS class_date",
	"sc.time AS class_time",
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func selectReservations() squirrel.SelectBuilder {
	return psql.Select(reservationColumns...).
		From("reservations r").
		Join("scheduled_classes sc ON sc.id = r.scheduled_class_id").
		Join("class_types ct ON ct.id = sc.class_type_id")
}

// Create inserts r. A confirmed reservation on an occupied slot fails with
// ErrSlotTaken, which is the authoritative guard under concurrent bookings.
func (r *repository) Create(ctx context.Context, res *Reservation) error {
	err := db.GetExecutor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO reservations (user_id, scheduled_class_id, user_package_id, bike_number, status, payment_method, payment_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, res.UserID, res.ScheduledClassID, res.UserPackageID, res.BikeNumber, res.Status, res.PaymentMethod, res.PaymentReference,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if isSlotViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func isSlotViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && (pqErr.Constraint == "" || pqErr.Constraint == confirmedSlotIndex)
}

func (r *repository) GetByID(ctx context.Context, id int) (*Reservation, error) {
	return r.get(ctx, selectReservations().Where(squirrel.Eq{"r.id": id}))
}

// GetByIDForUpdate locks the reservation row only.
func (r *repository) GetByIDForUpdate(ctx context.Context, id int) (*Reservation, error) {
	return r.get(ctx, selectReservations().Where(squirrel.Eq{"r.id": id}).Suffix("FOR UPDATE OF r"))
}

func (r *repository) get(ctx context.Context, b squirrel.SelectBuilder) (*Reservation, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reservation query: %w", err)
	}

	var res Reservation
	err = db.GetExecutor(ctx, r.db).GetContext(ctx, &res, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int, status Status) error {
	result, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// IsSlotTaken reports whether a confirmed reservation holds the slot. A nil
// bike number asks about the null slot.
func (r *repository) IsSlotTaken(ctx context.Context, classID int, bikeNumber *int) (bool, error) {
	slot := NullSlot
	if bikeNumber != nil {
		slot = *bikeNumber
	}
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE scheduled_class_id = $1
			  AND COALESCE(bike_number, 0) = $2
			  AND status = 'confirmed'
		)
	`, classID, slot)
}

func (r *repository) HasConfirmedForClass(ctx context.Context, userID, classID int) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND scheduled_class_id = $2 AND status = 'confirmed'
		)
	`, userID, classID)
}

func (r *repository) HasActiveForClass(ctx context.Context, userID, classID int) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND scheduled_class_id = $2 AND status IN ('confirmed', 'pending')
		)
	`, userID, classID)
}

func (r *repository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := db.GetExecutor(ctx, r.db).GetContext(ctx, &found, query, args...); err != nil {
		return false, err
	}
	return found, nil
}

func (r *repository) CountConfirmedForUserPackage(ctx context.Context, userPackageID int) (int, error) {
	var n int
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &n, `
		SELECT COUNT(*) FROM reservations
		WHERE user_package_id = $1 AND status = 'confirmed'
	`, userPackageID)
	return n, err
}

// OccupiedSlots lists the slots held by confirmed reservations, NullSlot included.
func (r *repository) OccupiedSlots(ctx context.Context, classID int) ([]int, error) {
	slots := []int{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &slots, `
		SELECT COALESCE(bike_number, 0)
		FROM reservations
		WHERE scheduled_class_id = $1 AND status = 'confirmed'
		ORDER BY 1
	`, classID)
	return slots, err
}

func (r *repository) List(ctx context.Context, f Filter) ([]Reservation, error) {
	b := selectReservations()

	if f.ClassID != 0 {
		b = b.Where(squirrel.Eq{"r.scheduled_class_id": f.ClassID})
	}
	if f.UserID != 0 {
		b = b.Where(squirrel.Eq{"r.user_id": f.UserID})
	}
	if f.Status != nil {
		b = b.Where(squirrel.Eq{"r.status": *f.Status})
	}
	if f.Upcoming {
		b = b.Where("sc.date >= CURRENT_DATE")
	}

	if f.ClassID != 0 {
		b = b.OrderBy("r.created_at ASC", "r.id ASC")
	} else {
		b = b.OrderBy("sc.date DESC", "sc.time DESC", "r.id DESC")
	}

	limit := f.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	b = b.Limit(limit).Offset(f.Offset)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reservation list query: %w", err)
	}

	out := []Reservation{}
	if err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
