package waitlist

import "time"

type Entry struct {
	ID               int       `db:"id" json:"id"`
	UserID           int       `db:"user_id" json:"user_id"`
	ScheduledClassID int       `db:"scheduled_class_id" json:"scheduled_class_id"`
	Position         int       `db:"position" json:"position"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
