package classes

import (
	"time"

	"innata/internal/calendar"
)

const StatusScheduled = "scheduled"

// ScheduledClass is one bookable occurrence of a class type. Date holds only a
// calendar date and Time an "HH:MM[:SS]" clock, both read as UTC components.
type ScheduledClass struct {
	ID             int       `db:"id" json:"id"`
	ClassTypeID    int       `db:"class_type_id" json:"class_type_id"`
	ClassName      string    `db:"class_name" json:"class_name"`
	InstructorID   *int      `db:"instructor_id" json:"instructor_id,omitempty"`
	Date           time.Time `db:"date" json:"date"`
	Time           string    `db:"time" json:"time"`
	MaxCapacity    int       `db:"max_capacity" json:"max_capacity"`
	AvailableSpots int       `db:"available_spots" json:"available_spots"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StartsAt is the class start as a single UTC instant.
func (c *ScheduledClass) StartsAt() (time.Time, error) {
	return calendar.ComposeClassInstant(c.Date, c.Time)
}

func (c *ScheduledClass) IsBookable() bool {
	return c.Status == StatusScheduled
}
