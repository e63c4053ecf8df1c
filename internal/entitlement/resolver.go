package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"innata/internal/api"
	"innata/internal/calendar"
	"innata/internal/classes"
	"innata/internal/packages"
	"innata/internal/reservation"
)

type Request struct {
	UserID           int
	ClassID          int
	UserPackageID    *int
	PaymentReference *string
	BikeNumber       *int
	UseUnlimitedWeek bool
}

type Resolution struct {
	Source CreditSource
	// Eligibility is set when the Unlimited Week checks ran.
	Eligibility *Eligibility
}

// Resolver decides which credit source pays for a booking. It only reads.
type Resolver struct {
	validator    *Validator
	packages     packages.Repository
	reservations reservation.Repository
	clock        calendar.Clock
}

func NewResolver(validator *Validator, packageRepo packages.Repository, reservationRepo reservation.Repository, clock calendar.Clock) *Resolver {
	return &Resolver{
		validator:    validator,
		packages:     packageRepo,
		reservations: reservationRepo,
		clock:        clock,
	}
}

func (r *Resolver) Resolve(ctx context.Context, req Request, class *classes.ScheduledClass) (*Resolution, error) {
	res, err := r.resolveSource(ctx, req, class)
	if err != nil {
		return nil, err
	}
	if err := r.CheckDuplicates(ctx, req, res.Source); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) resolveSource(ctx context.Context, req Request, class *classes.ScheduledClass) (*Resolution, error) {
	switch {
	case req.UseUnlimitedWeek:
		return r.fromUnlimitedWeek(ctx, req)
	case req.UserPackageID != nil:
		return r.fromExplicitPackage(ctx, req, class)
	case req.PaymentReference != nil:
		return &Resolution{Source: ExternalPayment{Reference: *req.PaymentReference}}, nil
	default:
		return r.fromAutomaticSelection(ctx, req, class)
	}
}

func (r *Resolver) fromUnlimitedWeek(ctx context.Context, req Request) (*Resolution, error) {
	elig, err := r.validator.Validate(ctx, req.UserID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, elig.Err()
	}
	if elig.Package.ClassesRemaining <= 0 {
		return nil, api.NewError(api.ReasonNoCreditAvailable, "your Unlimited Week package has no classes left")
	}
	return &Resolution{Source: newUnlimitedWeekCredit(elig.Package), Eligibility: elig}, nil
}

func (r *Resolver) fromExplicitPackage(ctx context.Context, req Request, class *classes.ScheduledClass) (*Resolution, error) {
	up, err := r.packages.GetUserPackage(ctx, *req.UserPackageID)
	if errors.Is(err, packages.ErrUserPackageNotFound) || (err == nil && up.UserID != req.UserID) {
		return nil, api.NewError(api.ReasonPackageNotFound, "package %d not found", *req.UserPackageID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user package: %w", err)
	}

	switch now := r.clock.Now(); {
	case !up.IsActive:
		return nil, api.NewError(api.ReasonNoCreditAvailable, "package %d is not active", up.ID).WithDetail("userPackageId", up.ID)
	case up.ClassesRemaining <= 0:
		return nil, api.NewError(api.ReasonNoCreditAvailable, "package %d has no classes left", up.ID).WithDetail("userPackageId", up.ID)
	case up.ExpiryDate.Before(now):
		return nil, api.NewError(api.ReasonNoCreditAvailable, "package %d expired on %s", up.ID, up.ExpiryDate.Format(time.DateOnly)).
			WithDetail("userPackageId", up.ID)
	}

	if !up.IsUnlimitedWeek() {
		return &Resolution{Source: NormalCredit{Package: up}}, nil
	}
	if !calendar.IsBusinessDay(class.Date) {
		return nil, api.NewError(api.ReasonNonBusinessDay, "Unlimited Week only covers Monday to Friday")
	}
	if !up.CoversWeekOf(class.Date) {
		return nil, api.NewError(api.ReasonWrongWeek, "your Unlimited Week package is valid from %s to %s",
			up.PurchaseDate.Format(time.DateOnly), up.ExpiryDate.Format(time.DateOnly))
	}
	return &Resolution{Source: newUnlimitedWeekCredit(up)}, nil
}

func (r *Resolver) fromAutomaticSelection(ctx context.Context, req Request, class *classes.ScheduledClass) (*Resolution, error) {
	candidates, err := r.packages.ListActiveWithCredits(ctx, req.UserID, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	sortCandidates(candidates)

	businessDay := calendar.IsBusinessDay(class.Date)
	for i := range candidates {
		up := &candidates[i]
		if up.ClassesRemaining <= 0 {
			continue
		}
		if !up.IsUnlimitedWeek() {
			return &Resolution{Source: NormalCredit{Package: up}}, nil
		}
		if businessDay && up.CoversWeekOf(class.Date) {
			return &Resolution{Source: newUnlimitedWeekCredit(up)}, nil
		}
	}
	return nil, api.NewError(api.ReasonNoCreditAvailable, "you have no package with classes available for this class")
}

// sortCandidates orders ordinary packages before Unlimited Week, then by
// package id and earliest expiry.
func sortCandidates(ups []packages.UserPackage) {
	sort.SliceStable(ups, func(i, j int) bool {
		a, b := ups[i], ups[j]
		if a.IsUnlimitedWeek() != b.IsUnlimitedWeek() {
			return !a.IsUnlimitedWeek()
		}
		if a.PackageID != b.PackageID {
			return a.PackageID < b.PackageID
		}
		return a.ExpiryDate.Before(b.ExpiryDate)
	})
}

// CheckDuplicates enforces one Unlimited Week reservation per class and a
// bike for any additional reservation. The coordinator repeats it under the
// class lock.
func (r *Resolver) CheckDuplicates(ctx context.Context, req Request, src CreditSource) error {
	has, err := r.reservations.HasConfirmedForClass(ctx, req.UserID, req.ClassID)
	if err != nil {
		return fmt.Errorf("check existing reservation: %w", err)
	}
	if !has {
		return nil
	}
	if _, ok := src.(UnlimitedWeekCredit); ok {
		return api.NewError(api.ReasonAlreadyReserved, "Unlimited Week allows one reservation per class")
	}
	if req.BikeNumber == nil {
		return api.NewError(api.ReasonDuplicateNoSlot, "choose a bike for an additional reservation in this class")
	}
	return nil
}
