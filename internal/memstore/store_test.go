package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"innata/internal/balance"
	"innata/internal/classes"
	"innata/internal/reservation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollsBack(t *testing.T) {
	s := New()
	classID := s.AddClass(classes.ScheduledClass{ClassName: "Rueda", Date: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), Time: "07:00", MaxCapacity: 2, AvailableSpots: 2})

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Classes().DecrementAvailableSpots(ctx, classID))
		require.NoError(t, s.Reservations().Create(ctx, &reservation.Reservation{UserID: 1, ScheduledClassID: classID, Status: reservation.StatusConfirmed}))
		require.NoError(t, s.Ledger().Append(ctx, &balance.Transaction{UserID: 1, Type: balance.TypeSingleClassPaid, Amount: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, s.Class(classID).AvailableSpots)
	assert.Empty(t, s.AllReservations())
	assert.Empty(t, s.Transactions())
}

func TestWithinTx_Nested(t *testing.T) {
	s := New()
	classID := s.AddClass(classes.ScheduledClass{MaxCapacity: 2, AvailableSpots: 2})

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Classes().GetByIDForUpdate(ctx, classID)
			return err
		})
	})
	assert.NoError(t, err)
}

func TestRowLockOutsideTx(t *testing.T) {
	s := New()
	classID := s.AddClass(classes.ScheduledClass{MaxCapacity: 2, AvailableSpots: 2})

	_, err := s.Classes().GetByIDForUpdate(context.Background(), classID)
	assert.ErrorIs(t, err, errNotInTx)
}

func TestCreate_ConfirmedSlotIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	bike := 3

	require.NoError(t, s.Reservations().Create(ctx, &reservation.Reservation{ScheduledClassID: 1, BikeNumber: &bike, Status: reservation.StatusConfirmed}))
	err := s.Reservations().Create(ctx, &reservation.Reservation{ScheduledClassID: 1, BikeNumber: &bike, Status: reservation.StatusConfirmed})
	assert.ErrorIs(t, err, reservation.ErrSlotTaken)

	require.NoError(t, s.Reservations().Create(ctx, &reservation.Reservation{ScheduledClassID: 1, BikeNumber: &bike, Status: reservation.StatusCancelled}))
}
