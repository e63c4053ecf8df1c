package api

import (
	"errors"
	"fmt"
)

// Reason is a stable, machine-readable code attached to every rejected booking.
type Reason string

const (
	ReasonInvalidInput         Reason = "INVALID_INPUT"
	ReasonInvalidBikeNumber    Reason = "INVALID_BIKE_NUMBER"
	ReasonClassNotFound        Reason = "CLASS_NOT_FOUND"
	ReasonClassNotBookable     Reason = "CLASS_NOT_BOOKABLE"
	ReasonClassInPast          Reason = "CLASS_IN_PAST"
	ReasonClassStartingTooSoon Reason = "CLASS_STARTING_TOO_SOON"
	ReasonSlotTaken            Reason = "SLOT_TAKEN"
	ReasonNoCreditAvailable    Reason = "NO_CREDIT_AVAILABLE"
	ReasonPackageNotFound      Reason = "PACKAGE_NOT_FOUND"
	ReasonWrongWeek            Reason = "WRONG_WEEK"
	ReasonNoValidPackage       Reason = "NO_VALID_PACKAGE_FOR_DATE"
	ReasonNonBusinessDay       Reason = "NON_BUSINESS_DAY"
	ReasonWeeklyLimitExceeded  Reason = "WEEKLY_LIMIT_EXCEEDED"
	ReasonInsufficientTime     Reason = "INSUFFICIENT_TIME"
	ReasonTooFarInAdvance      Reason = "TOO_FAR_IN_ADVANCE"
	ReasonAlreadyReserved      Reason = "ALREADY_RESERVED"
	ReasonDuplicateNoSlot      Reason = "DUPLICATE_NO_SLOT_RESERVATION"
	ReasonReservationNotFound  Reason = "RESERVATION_NOT_FOUND"
	ReasonForbidden            Reason = "FORBIDDEN"
)

// Error is a rejection the caller can act on. It never wraps internal failures.
type Error struct {
	Reason  Reason
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func NewError(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns e with key set in its details.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// ReasonOf extracts the reason of an *Error anywhere in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason, true
	}
	return "", false
}
