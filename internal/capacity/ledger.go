package capacity

import (
	"context"
	"fmt"
	"strconv"

	"innata/internal/api"
	"innata/internal/classes"
	"innata/internal/reservation"
)

const (
	MinBikeNumber = 1
	MaxBikeNumber = 10
)

// Slot is a reservation's claim on one bike, or on the single no-bike
// position when Bike is nil.
type Slot struct {
	Bike *int
}

func SlotFor(bike *int) Slot {
	if bike == nil {
		return Slot{}
	}
	b := *bike
	return Slot{Bike: &b}
}

func (s Slot) IsNull() bool { return s.Bike == nil }

func (s Slot) String() string {
	if s.Bike == nil {
		return "no bike"
	}
	return "bike " + strconv.Itoa(*s.Bike)
}

type Allocation struct {
	Granted bool
	Slot    Slot
	Class   *classes.ScheduledClass
}

type Availability struct {
	ClassID        int   `json:"scheduledClassId"`
	MaxCapacity    int   `json:"maxCapacity"`
	AvailableSpots int   `json:"availableSpots"`
	OccupiedBikes  []int `json:"occupiedBikes"`
	FreeBikes      []int `json:"freeBikes"`
	NullSlotTaken  bool  `json:"noBikeSlotTaken"`
}

// Ledger owns a class's spot counter and its occupied slots. TryAllocate,
// Reserve and Release expect to run inside the booking transaction.
type Ledger struct {
	classes      classes.Repository
	reservations reservation.Repository
}

func NewLedger(classRepo classes.Repository, reservationRepo reservation.Repository) *Ledger {
	return &Ledger{classes: classRepo, reservations: reservationRepo}
}

func ValidateBikeNumber(bike *int) error {
	if bike == nil {
		return nil
	}
	if *bike < MinBikeNumber || *bike > MaxBikeNumber {
		return api.NewError(api.ReasonInvalidBikeNumber, "bike number must be between %d and %d", MinBikeNumber, MaxBikeNumber).
			WithDetail("bikeNumber", *bike)
	}
	return nil
}

// TryAllocate locks the class row and checks capacity before the slot. A full
// class is not an error: Granted is false and the caller goes to the waitlist.
func (l *Ledger) TryAllocate(ctx context.Context, classID int, bike *int) (*Allocation, error) {
	if err := ValidateBikeNumber(bike); err != nil {
		return nil, err
	}

	class, err := l.classes.GetByIDForUpdate(ctx, classID)
	if err != nil {
		return nil, err
	}

	slot := SlotFor(bike)
	if class.AvailableSpots <= 0 {
		return &Allocation{Granted: false, Slot: slot, Class: class}, nil
	}

	taken, err := l.reservations.IsSlotTaken(ctx, classID, bike)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return nil, api.NewError(api.ReasonSlotTaken, "%s is already taken for this class", slot)
	}

	return &Allocation{Granted: true, Slot: slot, Class: class}, nil
}

func (l *Ledger) Reserve(ctx context.Context, classID int) error {
	return l.classes.DecrementAvailableSpots(ctx, classID)
}

// Release returns a spot. The slot itself frees up once its reservation
// leaves the confirmed status.
func (l *Ledger) Release(ctx context.Context, classID int, slot Slot) error {
	if err := l.classes.IncrementAvailableSpots(ctx, classID); err != nil {
		return fmt.Errorf("release %s: %w", slot, err)
	}
	return nil
}

func (l *Ledger) Availability(ctx context.Context, classID int) (*Availability, error) {
	class, err := l.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}

	slots, err := l.reservations.OccupiedSlots(ctx, classID)
	if err != nil {
		return nil, err
	}

	a := &Availability{
		ClassID:        class.ID,
		MaxCapacity:    class.MaxCapacity,
		AvailableSpots: class.AvailableSpots,
		OccupiedBikes:  []int{},
		FreeBikes:      []int{},
	}
	occupied := make(map[int]bool, len(slots))
	for _, s := range slots {
		if s == reservation.NullSlot {
			a.NullSlotTaken = true
			continue
		}
		occupied[s] = true
		a.OccupiedBikes = append(a.OccupiedBikes, s)
	}
	for b := MinBikeNumber; b <= MaxBikeNumber; b++ {
		if !occupied[b] {
			a.FreeBikes = append(a.FreeBikes, b)
		}
	}
	return a, nil
}
