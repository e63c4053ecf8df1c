package entitlement

import (
	"context"
	"testing"
	"time"

	"innata/internal/api"
	"innata/internal/calendar"
	"innata/internal/classes"
	"innata/internal/memstore"
	"innata/internal/packages"
	"innata/internal/reservation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSettings struct {
	limit int
	grace int
}

func (f fixedSettings) WeeklyBookingLimit(context.Context) int { return f.limit }
func (f fixedSettings) GraceTimeHours(context.Context) int     { return f.grace }

var (
	monday    = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	mondayAM  = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	wednesday = time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store     *memstore.Store
	validator *Validator
	resolver  *Resolver
	userID    int
}

func newFixture(t *testing.T, now time.Time, limit int) *fixture {
	t.Helper()
	store := memstore.New()
	store.AddPackage(packages.Package{ID: 1, Name: "10 Classes", ClassCredits: 10, ValidityDays: 30})
	store.AddPackage(packages.Package{ID: packages.UnlimitedWeekPackageID, Name: "Unlimited Week", ClassCredits: 25})
	store.AddPackage(packages.Package{ID: 4, Name: "5 Classes", ClassCredits: 5, ValidityDays: 30})

	clock := calendar.FixedClock{T: now}
	v := NewValidator(store.Classes(), store.Packages(), store.Reservations(), fixedSettings{limit: limit, grace: 24}, clock)
	return &fixture{
		store:     store,
		validator: v,
		resolver:  NewResolver(v, store.Packages(), store.Reservations(), clock),
		userID:    500,
	}
}

func (f *fixture) class(day time.Time, clock string) *classes.ScheduledClass {
	id := f.store.AddClass(classes.ScheduledClass{ClassName: "Rueda", Date: day, Time: clock, MaxCapacity: 10, AvailableSpots: 10})
	c := f.store.Class(id)
	return &c
}

func (f *fixture) unlimitedWeek(weekOf time.Time) int {
	return f.store.AddUserPackage(packages.UserPackage{
		UserID:           f.userID,
		PackageID:        packages.UnlimitedWeekPackageID,
		ClassesRemaining: 25,
		PurchaseDate:     calendar.WeekStart(weekOf),
		ExpiryDate:       calendar.WeekEnd(weekOf),
		IsActive:         true,
	})
}

func (f *fixture) confirmed(classID int, userPackageID *int, bike *int) {
	f.store.AddReservation(reservation.Reservation{
		UserID:           f.userID,
		ScheduledClassID: classID,
		UserPackageID:    userPackageID,
		BikeNumber:       bike,
		Status:           reservation.StatusConfirmed,
	})
}

func intPtr(v int) *int { return &v }

func TestValidate_Eligible(t *testing.T) {
	f := newFixture(t, mondayAM, 25)
	pkgID := f.unlimitedWeek(monday)
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.True(t, e.Eligible)
	assert.Empty(t, e.Reason)
	assert.Equal(t, pkgID, e.Package.ID)
	assert.Equal(t, &WeeklyUsage{Used: 0, Limit: 25, Remaining: 25}, e.WeeklyUsage)
	assert.Equal(t, 24, e.GraceTimeHours)
	assert.NoError(t, e.Err())
}

func TestCoveringPackage_PrefersPackageWithClassesLeft(t *testing.T) {
	depleted := packages.UserPackage{ID: 1, PackageID: packages.UnlimitedWeekPackageID, PurchaseDate: monday, ExpiryDate: calendar.WeekEnd(monday), IsActive: true}
	funded := depleted
	funded.ID, funded.ClassesRemaining = 2, 10
	inactive := funded
	inactive.ID, inactive.IsActive = 3, false

	got := coveringPackage([]packages.UserPackage{depleted, funded}, wednesday)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID)

	got = coveringPackage([]packages.UserPackage{depleted, inactive}, wednesday)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)

	assert.Nil(t, coveringPackage([]packages.UserPackage{inactive}, wednesday))
}

func TestValidate_ClassNotFound(t *testing.T) {
	f := newFixture(t, mondayAM, 25)

	e, err := f.validator.Validate(context.Background(), f.userID, 404)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonClassNotFound, e.Reason)
}

func TestValidate_NoPackageAtAll(t *testing.T) {
	f := newFixture(t, mondayAM, 25)
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonNoValidPackage, e.Reason)
}

func TestValidate_SaturdayIsNonBusinessDayNotWrongWeek(t *testing.T) {
	f := newFixture(t, mondayAM, 25)
	f.unlimitedWeek(monday)
	saturday := f.class(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), "09:00")

	e, err := f.validator.Validate(context.Background(), f.userID, saturday.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonNonBusinessDay, e.Reason)
}

func TestValidate_NextMondayIsWrongWeek(t *testing.T) {
	f := newFixture(t, mondayAM, 25)
	f.unlimitedWeek(monday)
	nextMonday := f.class(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), "09:00")

	e, err := f.validator.Validate(context.Background(), f.userID, nextMonday.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonWrongWeek, e.Reason)
	assert.Contains(t, e.Message, "2025-01-06")
	assert.Contains(t, e.Message, "2025-01-10")
}

func TestValidate_WeeklyLimitReached(t *testing.T) {
	f := newFixture(t, mondayAM, 2)
	pkgID := f.unlimitedWeek(monday)
	for i := 0; i < 2; i++ {
		other := f.class(wednesday, "10:00")
		f.confirmed(other.ID, intPtr(pkgID), nil)
	}
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonWeeklyLimitExceeded, e.Reason)
	assert.Equal(t, &WeeklyUsage{Used: 2, Limit: 2, Remaining: 0}, e.WeeklyUsage)

	apiErr, ok := e.Err().(*api.Error)
	require.True(t, ok)
	assert.Equal(t, e.WeeklyUsage, apiErr.Details["weeklyUsage"])
}

func TestValidate_WeeklyLimitCheckedBeforeTime(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 8, 6, 59, 30, 0, time.UTC), 1)
	pkgID := f.unlimitedWeek(monday)
	other := f.class(wednesday, "10:00")
	f.confirmed(other.ID, intPtr(pkgID), nil)
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonWeeklyLimitExceeded, e.Reason)
}

func TestValidate_InsufficientTime(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 8, 6, 59, 30, 0, time.UTC), 25)
	f.unlimitedWeek(monday)
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonInsufficientTime, e.Reason)
	assert.Equal(t, &TimeRemaining{Hours: 0, Minutes: 0}, e.TimeRemaining)
}

func TestValidate_TooFarInAdvance(t *testing.T) {
	f := newFixture(t, time.Date(2024, 12, 2, 8, 0, 0, 0, time.UTC), 25)
	f.unlimitedWeek(monday)
	c := f.class(wednesday, "07:00")

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonTooFarInAdvance, e.Reason)
}

func TestValidate_AlreadyReserved(t *testing.T) {
	f := newFixture(t, mondayAM, 25)
	f.unlimitedWeek(monday)
	c := f.class(wednesday, "07:00")
	f.store.AddReservation(reservation.Reservation{UserID: f.userID, ScheduledClassID: c.ID, Status: reservation.StatusPending})

	e, err := f.validator.Validate(context.Background(), f.userID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, api.ReasonAlreadyReserved, e.Reason)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, &TimeRemaining{Hours: 2, Minutes: 15}, remaining(2*time.Hour+15*time.Minute+10*time.Second))
	assert.Equal(t, &TimeRemaining{}, remaining(-time.Minute))
}
