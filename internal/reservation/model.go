package reservation

import "time"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentPackage       PaymentMethod = "package"
	PaymentUnlimitedWeek PaymentMethod = "unlimited_week"
	PaymentExternal      PaymentMethod = "external"
)

// NullSlot is how the no-bike position is stored in slot listings and in the
// unique index over confirmed reservations.
const NullSlot = 0

type Reservation struct {
	ID               int           `db:"id" json:"id"`
	UserID           int           `db:"user_id" json:"user_id"`
	ScheduledClassID int           `db:"scheduled_class_id" json:"scheduled_class_id"`
	UserPackageID    *int          `db:"user_package_id" json:"user_package_id,omitempty"`
	BikeNumber       *int          `db:"bike_number" json:"bike_number,omitempty"`
	Status           Status        `db:"status" json:"status"`
	PaymentMethod    PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentReference *string       `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`

	ClassName string    `db:"class_name" json:"class_name,omitempty"`
	ClassDate time.Time `db:"class_date" json:"class_date"`
	ClassTime string    `db:"class_time" json:"class_time,omitempty"`
}

// Slot returns the stored slot value, NullSlot when no bike was chosen.
func (r *Reservation) Slot() int {
	if r.BikeNumber == nil {
		return NullSlot
	}
	return *r.BikeNumber
}

// Filter narrows ListByClass and ListByUser. Zero values mean no constraint.
type Filter struct {
	ClassID  int
	UserID   int
	Status   *Status
	Upcoming bool
	Limit    uint64
	Offset   uint64
}
