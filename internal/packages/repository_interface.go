package packages

import (
	"context"
	"time"
)

type Repository interface {
	ListCatalog(ctx context.Context) ([]Package, error)
	GetPackage(ctx context.Context, id int) (*Package, error)
	GetUserPackage(ctx context.Context, id int) (*UserPackage, error)
	ListActiveWithCredits(ctx context.Context, userID int, now time.Time) ([]UserPackage, error)
	ListUnlimitedWeek(ctx context.Context, userID int) ([]UserPackage, error)
	ListByUser(ctx context.Context, userID int) ([]UserPackage, error)
	Create(ctx context.Context, up *UserPackage) error
	ConsumeCredit(ctx context.Context, id int) error
	RestoreCredit(ctx context.Context, id int) error
}
