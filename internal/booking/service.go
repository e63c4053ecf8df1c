package booking

import (
	"context"
	"errors"
	"fmt"

	"innata/internal/api"
	"innata/internal/balance"
	"innata/internal/calendar"
	"innata/internal/capacity"
	"innata/internal/classes"
	"innata/internal/db"
	"innata/internal/email"
	"innata/internal/entitlement"
	"innata/internal/logger"
	"innata/internal/metrics"
	"innata/internal/packages"
	"innata/internal/reservation"
	"innata/internal/user"
	"innata/internal/waitlist"
)

// ErrCommitFailed marks a booking or cancellation whose transaction did not
// commit. Nothing from the attempt was persisted.
var ErrCommitFailed = errors.New("booking transaction failed")

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, to string, data email.BookingTemplateData) error
	SendCancellation(ctx context.Context, to string, data email.BookingTemplateData) error
	SendWaitlistNotice(ctx context.Context, to string, data email.WaitlistTemplateData) error
}

type Dependencies struct {
	Classes      classes.Repository
	Reservations reservation.Repository
	Packages     packages.Repository
	Ledger       balance.Repository
	Users        user.Repository
	Capacity     *capacity.Ledger
	Waitlist     *waitlist.Manager
	Resolver     *entitlement.Resolver
	Validator    *entitlement.Validator
	Settings     entitlement.Settings
	Tx           db.Transactor
	Notifier     Notifier
	Clock        calendar.Clock
}

// Coordinator is the only writer of reservations, package counters and the
// balance ledger.
type Coordinator struct {
	Dependencies
}

func NewCoordinator(deps Dependencies) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = calendar.SystemClock{}
	}
	return &Coordinator{Dependencies: deps}
}

// Book validates, resolves the credit source and then either confirms a
// reservation or queues the user, all in one transaction.
func (c *Coordinator) Book(ctx context.Context, userID int, req Request) (*Result, error) {
	result, err := c.book(ctx, userID, req)
	if err != nil {
		if reason, ok := api.ReasonOf(err); ok {
			metrics.RecordBookingRejection(string(reason))
			logger.Info("booking rejected", "user_id", userID, "class_id", req.ScheduledClassID, "reason", reason)
		}
		return nil, err
	}

	metrics.RecordBooking(string(result.Outcome), string(result.CreditSource))
	if result.Outcome == OutcomeWaitlisted {
		metrics.RecordWaitlistEntry()
	}
	c.notifyBooked(ctx, userID, result)
	return result, nil
}

func (c *Coordinator) book(ctx context.Context, userID int, req Request) (*Result, error) {
	if err := capacity.ValidateBikeNumber(req.BikeNumber); err != nil {
		return nil, err
	}

	class, err := c.Classes.GetByID(ctx, req.ScheduledClassID)
	if errors.Is(err, classes.ErrClassNotFound) {
		return nil, api.NewError(api.ReasonClassNotFound, "class %d does not exist", req.ScheduledClassID)
	}
	if err != nil {
		return nil, fmt.Errorf("load class: %w", err)
	}
	if !class.IsBookable() {
		return nil, api.NewError(api.ReasonClassNotBookable, "class %d is %s", class.ID, class.Status)
	}
	if err := c.checkLeadTime(class); err != nil {
		return nil, err
	}

	resolution, err := c.Resolver.Resolve(ctx, entitlement.Request{
		UserID:           userID,
		ClassID:          class.ID,
		UserPackageID:    req.UserPackageID,
		PaymentReference: req.PaymentReference,
		BikeNumber:       req.BikeNumber,
		UseUnlimitedWeek: req.UseUnlimitedWeek,
	}, class)
	if err != nil {
		return nil, err
	}

	start, _ := class.StartsAt()
	result := &Result{
		ClassID:      class.ID,
		ClassName:    class.ClassName,
		StartsAt:     start,
		CreditSource: resolution.Source.PaymentMethod(),
	}
	err = c.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return c.commit(ctx, userID, req, resolution, result)
	})
	if err != nil {
		if _, ok := api.ReasonOf(err); ok {
			return nil, err
		}
		logger.Error("booking transaction failed", "user_id", userID, "class_id", class.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return result, nil
}

// checkLeadTime rejects classes that started or start within MinimumAdvance.
func (c *Coordinator) checkLeadTime(class *classes.ScheduledClass) error {
	start, err := class.StartsAt()
	if err != nil {
		return fmt.Errorf("class %d start: %w", class.ID, err)
	}
	now := c.Clock.Now()
	if !start.After(now) {
		return api.NewError(api.ReasonClassInPast, "class already started")
	}
	if start.Sub(now) < entitlement.MinimumAdvance {
		return api.NewError(api.ReasonClassStartingTooSoon, "class starts in less than %s", entitlement.MinimumAdvance)
	}
	return nil
}

func (c *Coordinator) commit(ctx context.Context, userID int, req Request, resolution *entitlement.Resolution, result *Result) error {
	alloc, err := c.Capacity.TryAllocate(ctx, req.ScheduledClassID, req.BikeNumber)
	if err != nil {
		return err
	}

	if err := c.Resolver.CheckDuplicates(ctx, entitlement.Request{
		UserID:     userID,
		ClassID:    req.ScheduledClassID,
		BikeNumber: req.BikeNumber,
	}, resolution.Source); err != nil {
		return err
	}

	if !alloc.Granted {
		pos, err := c.Waitlist.Enqueue(ctx, userID, req.ScheduledClassID)
		if err != nil {
			return err
		}
		result.Outcome = OutcomeWaitlisted
		result.WaitlistPosition = pos
		return nil
	}

	src := resolution.Source
	if uw, ok := src.(entitlement.UnlimitedWeekCredit); ok {
		usage, err := c.checkWeeklyCap(ctx, uw)
		if err != nil {
			return err
		}
		result.WeeklyUsage = usage
		result.GraceTimeHours = c.Settings.GraceTimeHours(ctx)
	}

	res := &reservation.Reservation{
		UserID:           userID,
		ScheduledClassID: req.ScheduledClassID,
		BikeNumber:       alloc.Slot.Bike,
		Status:           reservation.StatusConfirmed,
		PaymentMethod:    src.PaymentMethod(),
	}
	if up := src.UserPackage(); up != nil {
		id := up.ID
		res.UserPackageID = &id
	}
	if ext, ok := src.(entitlement.ExternalPayment); ok {
		ref := ext.Reference
		res.PaymentReference = &ref
	}

	if err := c.Reservations.Create(ctx, res); err != nil {
		if errors.Is(err, reservation.ErrSlotTaken) {
			return api.NewError(api.ReasonSlotTaken, "%s is already taken for this class", alloc.Slot)
		}
		return fmt.Errorf("create reservation: %w", err)
	}

	entry := &balance.Transaction{
		UserID:        userID,
		ReservationID: &res.ID,
		Description:   describe(alloc.Class),
	}
	if up := src.UserPackage(); up != nil {
		if err := c.Packages.ConsumeCredit(ctx, up.ID); err != nil {
			if errors.Is(err, packages.ErrNoCreditsLeft) {
				return api.NewError(api.ReasonNoCreditAvailable, "package %d has no classes left", up.ID)
			}
			return fmt.Errorf("consume credit: %w", err)
		}
		if _, err := c.Ledger.RefreshBalance(ctx, userID); err != nil {
			return fmt.Errorf("refresh balance: %w", err)
		}
		entry.Type = balance.TypeDebit
		entry.Amount = -1
		entry.UserPackageID = res.UserPackageID
	} else {
		entry.Type = balance.TypeSingleClassPaid
		entry.Amount = 1
		entry.PaymentReference = res.PaymentReference
	}
	if err := c.Ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	if err := c.Capacity.Reserve(ctx, req.ScheduledClassID); err != nil {
		return fmt.Errorf("reserve spot: %w", err)
	}

	res.ClassName = alloc.Class.ClassName
	res.ClassDate = alloc.Class.Date
	res.ClassTime = alloc.Class.Time
	result.Outcome = OutcomeConfirmed
	result.Reservation = res
	return nil
}

// checkWeeklyCap counts the package's confirmed reservations under the class
// lock, whichever rule picked the Unlimited Week package, and returns the
// usage including the reservation being made.
func (c *Coordinator) checkWeeklyCap(ctx context.Context, uw entitlement.UnlimitedWeekCredit) (*entitlement.WeeklyUsage, error) {
	used, err := c.Reservations.CountConfirmedForUserPackage(ctx, uw.Package.ID)
	if err != nil {
		return nil, fmt.Errorf("count weekly usage: %w", err)
	}
	limit := c.Settings.WeeklyBookingLimit(ctx)
	if used >= limit {
		return nil, api.NewError(api.ReasonWeeklyLimitExceeded, "weekly limit of %d classes reached", limit).
			WithDetail("weeklyUsage", &entitlement.WeeklyUsage{Used: used, Limit: limit, Remaining: 0})
	}
	return &entitlement.WeeklyUsage{Used: used + 1, Limit: limit, Remaining: limit - used - 1}, nil
}

func describe(class *classes.ScheduledClass) string {
	return fmt.Sprintf("%s %s %s", class.ClassName, class.Date.UTC().Format("2006-01-02"), class.Time)
}

func (c *Coordinator) notifyBooked(ctx context.Context, userID int, result *Result) {
	if c.Notifier == nil || c.Users == nil {
		return
	}
	u, err := c.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("skipping booking notification", "user_id", userID, "error", err)
		return
	}

	if result.Outcome == OutcomeWaitlisted {
		err = c.Notifier.SendWaitlistNotice(ctx, u.Email, email.WaitlistTemplateData{
			Name:      u.Name,
			ClassName: result.ClassName,
			StartsAt:  result.StartsAt,
			Position:  result.WaitlistPosition,
		})
	} else {
		err = c.Notifier.SendBookingConfirmation(ctx, u.Email, email.BookingTemplateData{
			Name:           u.Name,
			ClassName:      result.ClassName,
			StartsAt:       result.StartsAt,
			BikeNumber:     result.Reservation.BikeNumber,
			CreditSource:   string(result.CreditSource),
			ReservationID:  result.Reservation.ID,
			GraceTimeHours: result.GraceTimeHours,
		})
	}
	if err != nil {
		logger.Warn("booking notification failed", "user_id", userID, "error", err)
	}
}

// Cancel frees the reservation's slot and returns its credit. Only the owner
// can cancel, and only before the class starts.
func (c *Coordinator) Cancel(ctx context.Context, userID, reservationID int) (*reservation.Reservation, error) {
	var cancelled *reservation.Reservation
	err := c.Tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := c.cancel(ctx, userID, reservationID)
		cancelled = res
		return err
	})
	if err != nil {
		if _, ok := api.ReasonOf(err); ok {
			return nil, err
		}
		logger.Error("cancellation failed", "user_id", userID, "reservation_id", reservationID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	metrics.RecordBookingCancellation()
	logger.Info("reservation cancelled", "user_id", userID, "reservation_id", reservationID)
	c.notifyCancelled(ctx, userID, cancelled)
	return cancelled, nil
}

func (c *Coordinator) cancel(ctx context.Context, userID, reservationID int) (*reservation.Reservation, error) {
	res, err := c.Reservations.GetByIDForUpdate(ctx, reservationID)
	if errors.Is(err, reservation.ErrReservationNotFound) {
		return nil, api.NewError(api.ReasonReservationNotFound, "reservation %d does not exist", reservationID)
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if res.UserID != userID {
		return nil, api.NewError(api.ReasonForbidden, "reservation %d belongs to another user", reservationID)
	}
	if res.Status != reservation.StatusConfirmed {
		return nil, api.NewError(api.ReasonReservationNotFound, "reservation %d is not active", reservationID)
	}

	class, err := c.Classes.GetByIDForUpdate(ctx, res.ScheduledClassID)
	if err != nil {
		return nil, fmt.Errorf("lock class: %w", err)
	}
	start, err := class.StartsAt()
	if err != nil {
		return nil, fmt.Errorf("class %d start: %w", class.ID, err)
	}
	if !start.After(c.Clock.Now()) {
		return nil, api.NewError(api.ReasonClassInPast, "class already started")
	}

	if err := c.Reservations.UpdateStatus(ctx, res.ID, reservation.StatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	if err := c.Capacity.Release(ctx, class.ID, capacity.SlotFor(res.BikeNumber)); err != nil {
		return nil, err
	}

	entry := &balance.Transaction{
		UserID:        userID,
		Type:          balance.TypeRefund,
		ReservationID: &res.ID,
		Description:   "cancelled " + describe(class),
	}
	if res.UserPackageID != nil {
		if err := c.Packages.RestoreCredit(ctx, *res.UserPackageID); err != nil {
			return nil, fmt.Errorf("restore credit: %w", err)
		}
		if _, err := c.Ledger.RefreshBalance(ctx, userID); err != nil {
			return nil, fmt.Errorf("refresh balance: %w", err)
		}
		entry.Amount = 1
		entry.UserPackageID = res.UserPackageID
	} else {
		// reverses the single_class_paid row
		entry.Amount = -1
		entry.PaymentReference = res.PaymentReference
	}
	if err := c.Ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	res.Status = reservation.StatusCancelled
	res.ClassName = class.ClassName
	res.ClassDate = class.Date
	res.ClassTime = class.Time
	return res, nil
}

func (c *Coordinator) notifyCancelled(ctx context.Context, userID int, res *reservation.Reservation) {
	if c.Notifier == nil || c.Users == nil {
		return
	}
	u, err := c.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("skipping cancellation notification", "user_id", userID, "error", err)
		return
	}
	start, _ := calendar.ComposeClassInstant(res.ClassDate, res.ClassTime)
	err = c.Notifier.SendCancellation(ctx, u.Email, email.BookingTemplateData{
		Name:          u.Name,
		ClassName:     res.ClassName,
		StartsAt:      start,
		BikeNumber:    res.BikeNumber,
		CreditSource:  string(res.PaymentMethod),
		ReservationID: res.ID,
	})
	if err != nil {
		logger.Warn("cancellation notification failed", "user_id", userID, "error", err)
	}
}

func (c *Coordinator) ListUserReservations(ctx context.Context, userID int, upcoming bool, limit, offset uint64) ([]reservation.Reservation, error) {
	return c.Reservations.List(ctx, reservation.Filter{
		UserID:   userID,
		Upcoming: upcoming,
		Limit:    limit,
		Offset:   offset,
	})
}

func (c *Coordinator) ClassReservations(ctx context.Context, classID int, status *reservation.Status) ([]reservation.Reservation, error) {
	if _, err := c.lookupClass(ctx, classID); err != nil {
		return nil, err
	}
	return c.Reservations.List(ctx, reservation.Filter{ClassID: classID, Status: status})
}

func (c *Coordinator) ClassAvailability(ctx context.Context, classID int) (*capacity.Availability, error) {
	a, err := c.Capacity.Availability(ctx, classID)
	if errors.Is(err, classes.ErrClassNotFound) {
		return nil, api.NewError(api.ReasonClassNotFound, "class %d does not exist", classID)
	}
	return a, err
}

func (c *Coordinator) ClassWaitlist(ctx context.Context, classID int) ([]waitlist.Entry, error) {
	if _, err := c.lookupClass(ctx, classID); err != nil {
		return nil, err
	}
	return c.Waitlist.List(ctx, classID)
}

// Eligibility runs the Unlimited Week checks without booking anything.
func (c *Coordinator) Eligibility(ctx context.Context, userID, classID int) (*entitlement.Eligibility, error) {
	return c.Validator.Validate(ctx, userID, classID)
}

func (c *Coordinator) lookupClass(ctx context.Context, classID int) (*classes.ScheduledClass, error) {
	class, err := c.Classes.GetByID(ctx, classID)
	if errors.Is(err, classes.ErrClassNotFound) {
		return nil, api.NewError(api.ReasonClassNotFound, "class %d does not exist", classID)
	}
	return class, err
}
