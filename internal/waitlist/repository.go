package waitlist

import (
	"context"

	"innata/internal/db"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountForClass(ctx context.Context, classID int) (int, error) {
	var n int
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &n, `
		SELECT COUNT(*) FROM waitlist WHERE scheduled_class_id = $1
	`, classID)
	return n, err
}

func (r *repository) Insert(ctx context.Context, e *Entry) error {
	return db.GetExecutor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO waitlist (user_id, scheduled_class_id, position)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, e.UserID, e.ScheduledClassID, e.Position).Scan(&e.ID, &e.CreatedAt)
}

func (r *repository) ListByClass(ctx context.Context, classID int) ([]Entry, error) {
	entries := []Entry{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &entries, `
		SELECT id, user_id, scheduled_class_id, position, created_at
		FROM waitlist
		WHERE scheduled_class_id = $1
		ORDER BY position
	`, classID)
	return entries, err
}
