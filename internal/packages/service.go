package packages

import (
	"context"
	"fmt"
	"time"

	"innata/internal/balance"
	"innata/internal/calendar"
	"innata/internal/db"
	"innata/internal/logger"
)

type Service struct {
	repo   Repository
	ledger balance.Repository
	tx     db.Transactor
	clock  calendar.Clock
}

func NewService(repo Repository, ledger balance.Repository, tx db.Transactor, clock calendar.Clock) *Service {
	return &Service{repo: repo, ledger: ledger, tx: tx, clock: clock}
}

func (s *Service) Catalog(ctx context.Context) ([]Package, error) {
	return s.repo.ListCatalog(ctx)
}

func (s *Service) ListForUser(ctx context.Context, userID int) ([]UserPackage, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Assign grants a catalog package to a user after an external payment. The
// package, its purchase ledger row and the refreshed balance commit together.
func (s *Service) Assign(ctx context.Context, userID int, req AssignPackageRequest) (*UserPackage, error) {
	pkg, err := s.repo.GetPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	weekOf := now
	if req.WeekOf != "" {
		weekOf, err = time.Parse(time.DateOnly, req.WeekOf)
		if err != nil {
			return nil, fmt.Errorf("%w: weekOf must be YYYY-MM-DD", ErrInvalidWeek)
		}
	}
	if pkg.IsUnlimitedWeek() && calendar.WeekEnd(weekOf).Before(now) {
		return nil, fmt.Errorf("%w: week of %s is already over", ErrInvalidWeek, weekOf.Format(time.DateOnly))
	}

	up := NewUserPackage(userID, pkg, now, weekOf)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, up); err != nil {
			return fmt.Errorf("create user package: %w", err)
		}
		pkgID := up.ID
		if err := s.ledger.Append(ctx, &balance.Transaction{
			UserID:        userID,
			Type:          balance.TypePurchase,
			Amount:        up.ClassesRemaining,
			Description:   pkg.Name,
			UserPackageID: &pkgID,
		}); err != nil {
			return fmt.Errorf("append purchase: %w", err)
		}
		if _, err := s.ledger.RefreshBalance(ctx, userID); err != nil {
			return fmt.Errorf("refresh balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("package assigned", "user_id", userID, "user_package_id", up.ID, "package_id", pkg.ID)
	return up, nil
}
