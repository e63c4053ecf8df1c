package reservation

import "context"

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id int) (*Reservation, error)
	GetByIDForUpdate(ctx context.Context, id int) (*Reservation, error)
	UpdateStatus(ctx context.Context, id int, status Status) error
	IsSlotTaken(ctx context.Context, classID int, bikeNumber *int) (bool, error)
	HasConfirmedForClass(ctx context.Context, userID, classID int) (bool, error)
	HasActiveForClass(ctx context.Context, userID, classID int) (bool, error)
	CountConfirmedForUserPackage(ctx context.Context, userPackageID int) (int, error)
	OccupiedSlots(ctx context.Context, classID int) ([]int, error)
	List(ctx context.Context, f Filter) ([]Reservation, error)
}
