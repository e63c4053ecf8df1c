package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"innata/internal/balance"
	"innata/internal/booking"
	"innata/internal/calendar"
	"innata/internal/capacity"
	"innata/internal/classes"
	"innata/internal/db"
	"innata/internal/email"
	"innata/internal/entitlement"
	"innata/internal/logger"
	"innata/internal/packages"
	"innata/internal/reservation"
	"innata/internal/settings"
	"innata/internal/user"
	"innata/internal/waitlist"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type silentNotifier struct{}

func (silentNotifier) SendBookingConfirmation(context.Context, string, email.BookingTemplateData) error {
	return nil
}

func (silentNotifier) SendCancellation(context.Context, string, email.BookingTemplateData) error {
	return nil
}

func (silentNotifier) SendWaitlistNotice(context.Context, string, email.WaitlistTemplateData) error {
	return nil
}

func setupTestDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration tests")
	}

	database, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("cannot connect to test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, "../migrations"))
	cleanDatabase(t, database)
	return database
}

func cleanDatabase(t *testing.T, database *sqlx.DB) {
	tables := []string{
		"balance_transactions",
		"waitlist",
		"reservations",
		"user_account_balance",
		"user_packages",
		"scheduled_classes",
		"class_types",
		"users",
	}
	for _, table := range tables {
		_, err := database.Exec(fmt.Sprintf("DELETE FROM %s", table))
		require.NoError(t, err, "clean table "+table)
	}
}

func newCoordinator(database *sqlx.DB) *booking.Coordinator {
	clock := calendar.SystemClock{}
	classRepo := classes.NewRepository(database)
	packageRepo := packages.NewRepository(database)
	reservationRepo := reservation.NewRepository(database)
	provider := settings.NewProvider(settings.NewRepository(database), time.Minute)
	validator := entitlement.NewValidator(classRepo, packageRepo, reservationRepo, provider, clock)

	return booking.NewCoordinator(booking.Dependencies{
		Classes:      classRepo,
		Reservations: reservationRepo,
		Packages:     packageRepo,
		Ledger:       balance.NewRepository(database),
		Users:        user.NewRepository(database),
		Capacity:     capacity.NewLedger(classRepo, reservationRepo),
		Waitlist:     waitlist.NewManager(waitlist.NewRepository(database)),
		Resolver:     entitlement.NewResolver(validator, packageRepo, reservationRepo, clock),
		Validator:    validator,
		Settings:     provider,
		Tx:           db.NewTxManager(database),
		Notifier:     silentNotifier{},
		Clock:        clock,
	})
}

func createUser(t *testing.T, database *sqlx.DB, name string) int {
	var id int
	err := database.QueryRow(
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`,
		name, name+"@example.com",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func createClass(t *testing.T, database *sqlx.DB, capacity int) int {
	var typeID int
	require.NoError(t, database.QueryRow(
		`INSERT INTO class_types (name) VALUES ('Rueda') RETURNING id`,
	).Scan(&typeID))

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	var id int
	err := database.QueryRow(`
		INSERT INTO scheduled_classes (class_type_id, date, time, max_capacity, available_spots)
		VALUES ($1, $2, '18:00', $3, $3)
		RETURNING id
	`, typeID, date, capacity).Scan(&id)
	require.NoError(t, err)
	return id
}

func givePackage(t *testing.T, database *sqlx.DB, userID, credits int) {
	_, err := database.Exec(`
		INSERT INTO user_packages (user_id, package_id, classes_remaining, purchase_date, expiry_date)
		VALUES ($1, 2, $2, NOW(), NOW() + INTERVAL '30 days')
	`, userID, credits)
	require.NoError(t, err)
}

func TestBookingIntegration_SameBikeRace(t *testing.T) {
	database := setupTestDB(t)
	coordinator := newCoordinator(database)
	classID := createClass(t, database, 10)

	const riders = 6
	users := make([]int, riders)
	for i := range users {
		users[i] = createUser(t, database, fmt.Sprintf("rider%d", i))
		givePackage(t, database, users[i], 5)
	}

	bike := 3
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
	)
	for _, uid := range users {
		wg.Add(1)
		go func(uid int) {
			defer wg.Done()
			res, err := coordinator.Book(context.Background(), uid, booking.Request{
				ScheduledClassID: classID,
				BikeNumber:       &bike,
			})
			if err == nil && res.Outcome == booking.OutcomeConfirmed {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
		}(uid)
	}
	wg.Wait()

	assert.Equal(t, 1, confirmed)

	var spots, rows, debits int
	require.NoError(t, database.Get(&spots, `SELECT available_spots FROM scheduled_classes WHERE id = $1`, classID))
	require.NoError(t, database.Get(&rows, `SELECT COUNT(*) FROM reservations WHERE scheduled_class_id = $1 AND status = 'confirmed'`, classID))
	require.NoError(t, database.Get(&debits, `SELECT COUNT(*) FROM balance_transactions WHERE amount = -1`))
	assert.Equal(t, 9, spots)
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, debits)
}

func TestBookingIntegration_FullClassWaitlists(t *testing.T) {
	database := setupTestDB(t)
	coordinator := newCoordinator(database)
	classID := createClass(t, database, 1)

	first := createUser(t, database, "first")
	second := createUser(t, database, "second")
	givePackage(t, database, first, 5)
	givePackage(t, database, second, 5)

	ctx := context.Background()
	res, err := coordinator.Book(ctx, first, booking.Request{ScheduledClassID: classID})
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)

	res, err = coordinator.Book(ctx, second, booking.Request{ScheduledClassID: classID})
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeWaitlisted, res.Outcome)
	assert.Equal(t, 1, res.WaitlistPosition)

	var remaining int
	require.NoError(t, database.Get(&remaining, `SELECT classes_remaining FROM user_packages WHERE user_id = $1`, second))
	assert.Equal(t, 5, remaining)

	cancelled, err := coordinator.Cancel(ctx, first, mustReservation(t, database, first))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)

	var spots int
	require.NoError(t, database.Get(&spots, `SELECT available_spots FROM scheduled_classes WHERE id = $1`, classID))
	assert.Equal(t, 1, spots)
	require.NoError(t, database.Get(&remaining, `SELECT classes_remaining FROM user_packages WHERE user_id = $1`, first))
	assert.Equal(t, 5, remaining)
}

func mustReservation(t *testing.T, database *sqlx.DB, userID int) int {
	var id int
	require.NoError(t, database.Get(&id, `SELECT id FROM reservations WHERE user_id = $1 AND status = 'confirmed'`, userID))
	return id
}
