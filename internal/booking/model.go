package booking

import (
	"time"

	"innata/internal/entitlement"
	"innata/internal/reservation"
)

// Request is the booking payload. A PaymentReference marks an externally
// paid single class. BikeNumber is range checked by the capacity ledger so it
// reports its own reason code.
type Request struct {
	ScheduledClassID int     `json:"scheduledClassId" binding:"required,gt=0"`
	UserPackageID    *int    `json:"userPackageId,omitempty" binding:"omitempty,gt=0"`
	PaymentReference *string `json:"paymentReference,omitempty" binding:"omitempty,min=1,max=128"`
	BikeNumber       *int    `json:"bikeNumber,omitempty"`
	UseUnlimitedWeek bool    `json:"useUnlimitedWeek"`
}

type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeWaitlisted Outcome = "waitlisted"
)

// Result is either a confirmed reservation or a waitlist position.
type Result struct {
	Outcome          Outcome
	Reservation      *reservation.Reservation
	ClassID          int
	ClassName        string
	StartsAt         time.Time
	CreditSource     reservation.PaymentMethod
	WeeklyUsage      *entitlement.WeeklyUsage
	GraceTimeHours   int
	WaitlistPosition int
}

type ConfirmedResponse struct {
	ReservationID  int                       `json:"reservationId"`
	ClassName      string                    `json:"className"`
	Status         reservation.Status        `json:"status"`
	CreditSource   reservation.PaymentMethod `json:"creditSource"`
	BikeNumber     *int                      `json:"bikeNumber,omitempty"`
	WeeklyUsage    *entitlement.WeeklyUsage  `json:"weeklyUsage,omitempty"`
	GraceTimeHours int                       `json:"graceTimeHours,omitempty"`
}

type WaitlistResponse struct {
	Message          string `json:"message"`
	WaitlistPosition int    `json:"waitlistPosition"`
}
