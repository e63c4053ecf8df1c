package classes

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int) (*ScheduledClass, error)
	GetByIDForUpdate(ctx context.Context, id int) (*ScheduledClass, error)
	DecrementAvailableSpots(ctx context.Context, id int) error
	IncrementAvailableSpots(ctx context.Context, id int) error
}
