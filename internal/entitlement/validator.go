package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innata/internal/api"
	"innata/internal/calendar"
	"innata/internal/classes"
	"innata/internal/packages"
	"innata/internal/reservation"
)

// MinimumAdvance is how long before the start a class can still be booked.
const MinimumAdvance = time.Minute

type Settings interface {
	WeeklyBookingLimit(ctx context.Context) int
	GraceTimeHours(ctx context.Context) int
}

type WeeklyUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type TimeRemaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Eligibility is the outcome of the Unlimited Week checks. Reason is empty
// when Eligible is true.
type Eligibility struct {
	Eligible       bool           `json:"eligible"`
	Reason         api.Reason     `json:"reason,omitempty"`
	Message        string         `json:"message,omitempty"`
	WeeklyUsage    *WeeklyUsage   `json:"weeklyUsage,omitempty"`
	TimeRemaining  *TimeRemaining `json:"timeRemaining,omitempty"`
	GraceTimeHours int            `json:"graceTimeHours,omitempty"`

	Package *packages.UserPackage   `json:"-"`
	Class   *classes.ScheduledClass `json:"-"`
}

// Err converts a failed eligibility into the error returned to callers.
func (e *Eligibility) Err() error {
	if e.Eligible {
		return nil
	}
	err := api.NewError(e.Reason, "%s", e.Message)
	if e.WeeklyUsage != nil {
		err.WithDetail("weeklyUsage", e.WeeklyUsage)
	}
	if e.TimeRemaining != nil {
		err.WithDetail("timeRemaining", e.TimeRemaining)
	}
	return err
}

func reject(reason api.Reason, format string, args ...interface{}) *Eligibility {
	return &Eligibility{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

type Validator struct {
	classes      classes.Repository
	packages     packages.Repository
	reservations reservation.Repository
	settings     Settings
	clock        calendar.Clock
}

func NewValidator(
	classRepo classes.Repository,
	packageRepo packages.Repository,
	reservationRepo reservation.Repository,
	settings Settings,
	clock calendar.Clock,
) *Validator {
	return &Validator{
		classes:      classRepo,
		packages:     packageRepo,
		reservations: reservationRepo,
		settings:     settings,
		clock:        clock,
	}
}

// Validate runs the Unlimited Week checks in order and stops at the first
// failure. The returned error is reserved for storage failures.
func (v *Validator) Validate(ctx context.Context, userID, classID int) (*Eligibility, error) {
	// 1. class
	class, err := v.classes.GetByID(ctx, classID)
	if errors.Is(err, classes.ErrClassNotFound) {
		return reject(api.ReasonClassNotFound, "class %d does not exist", classID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load class: %w", err)
	}

	// 2. covering package for the class's week
	owned, err := v.packages.ListUnlimitedWeek(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlimited week packages: %w", err)
	}
	pkg := coveringPackage(owned, class.Date)
	if pkg == nil {
		if len(owned) > 0 {
			latest := owned[len(owned)-1]
			return reject(api.ReasonWrongWeek,
				"your Unlimited Week package is valid from %s to %s",
				latest.PurchaseDate.Format(time.DateOnly), latest.ExpiryDate.Format(time.DateOnly)), nil
		}
		return reject(api.ReasonNoValidPackage,
			"no Unlimited Week package covers %s", class.Date.Format(time.DateOnly)), nil
	}

	// 3. business day
	if !calendar.IsBusinessDay(class.Date) {
		return reject(api.ReasonNonBusinessDay,
			"Unlimited Week only covers Monday to Friday, class is on %s", class.Date.UTC().Weekday()), nil
	}

	// 4. weekly cap
	used, err := v.reservations.CountConfirmedForUserPackage(ctx, pkg.ID)
	if err != nil {
		return nil, fmt.Errorf("count weekly usage: %w", err)
	}
	limit := v.settings.WeeklyBookingLimit(ctx)
	usage := &WeeklyUsage{Used: used, Limit: limit, Remaining: max(limit-used, 0)}
	if used >= limit {
		e := reject(api.ReasonWeeklyLimitExceeded, "weekly limit of %d classes reached", limit)
		e.WeeklyUsage = usage
		return e, nil
	}

	// 5. time to class
	start, err := class.StartsAt()
	if err != nil {
		return nil, fmt.Errorf("class %d start: %w", class.ID, err)
	}
	now := v.clock.Now()
	until := start.Sub(now)
	if until < MinimumAdvance {
		e := reject(api.ReasonInsufficientTime, "classes must be booked at least %s before they start", MinimumAdvance)
		e.TimeRemaining = remaining(until)
		return e, nil
	}

	// 6. advance ceiling
	if start.After(now.AddDate(0, 1, 0)) {
		return reject(api.ReasonTooFarInAdvance, "classes can be booked at most one month ahead"), nil
	}

	// 7. duplicate
	dup, err := v.reservations.HasActiveForClass(ctx, userID, classID)
	if err != nil {
		return nil, fmt.Errorf("check existing reservation: %w", err)
	}
	if dup {
		return reject(api.ReasonAlreadyReserved, "you already have a reservation for this class"), nil
	}

	return &Eligibility{
		Eligible:       true,
		WeeklyUsage:    usage,
		GraceTimeHours: v.settings.GraceTimeHours(ctx),
		Package:        pkg,
		Class:          class,
	}, nil
}

// coveringPackage picks the active package contracted for the week of day,
// preferring one with classes left. A depleted one is returned only when no
// other covers the week, so the caller can report it.
func coveringPackage(owned []packages.UserPackage, day time.Time) *packages.UserPackage {
	var depleted *packages.UserPackage
	for i := range owned {
		if !owned[i].IsActive || !owned[i].CoversWeekOf(day) {
			continue
		}
		if owned[i].ClassesRemaining > 0 {
			return &owned[i]
		}
		if depleted == nil {
			depleted = &owned[i]
		}
	}
	return depleted
}

func remaining(d time.Duration) *TimeRemaining {
	if d < 0 {
		d = 0
	}
	return &TimeRemaining{Hours: int(d / time.Hour), Minutes: int(d%time.Hour) / int(time.Minute)}
}
