package packages

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"innata/internal/db"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPackageNotFound     = errors.New("package not found")
	ErrUserPackageNotFound = errors.New("user package not found")
	ErrNoCreditsLeft       = errors.New("user package has no classes remaining")
	ErrInvalidWeek         = errors.New("invalid contracted week")
)

const selectUserPackage = `
	SELECT
		up.id,
		up.user_id,
		up.package_id,
		p.name AS package_name,
		up.classes_remaining,
		up.classes_used,
		up.purchase_date,
		up.expiry_date,
		up.is_active,
		up.created_at
	FROM user_packages up
	JOIN packages p ON p.id = up.package_id
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCatalog(ctx context.Context) ([]Package, error) {
	pkgs := []Package{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &pkgs, `
		SELECT id, name, class_credits, validity_days, price, is_active
		FROM packages
		WHERE is_active = true
		ORDER BY id
	`)
	return pkgs, err
}

func (r *repository) GetPackage(ctx context.Context, id int) (*Package, error) {
	var p Package
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &p, `
		SELECT id, name, class_credits, validity_days, price, is_active
		FROM packages
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetUserPackage(ctx context.Context, id int) (*UserPackage, error) {
	var up UserPackage
	err := db.GetExecutor(ctx, r.db).GetContext(ctx, &up, selectUserPackage+" WHERE up.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &up, nil
}

// ListActiveWithCredits returns the candidates for automatic selection. The
// order puts ordinary packages ahead of Unlimited Week, then earliest expiry.
func (r *repository) ListActiveWithCredits(ctx context.Context, userID int, now time.Time) ([]UserPackage, error) {
	ups := []UserPackage{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &ups, selectUserPackage+`
		WHERE up.user_id = $1
		  AND up.is_active = true
		  AND up.classes_remaining > 0
		  AND up.expiry_date >= $2
		ORDER BY (up.package_id = $3), up.package_id, up.expiry_date
	`, userID, now, UnlimitedWeekPackageID)
	return ups, err
}

func (r *repository) ListUnlimitedWeek(ctx context.Context, userID int) ([]UserPackage, error) {
	ups := []UserPackage{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &ups, selectUserPackage+`
		WHERE up.user_id = $1
		  AND up.package_id = $2
		  AND up.is_active = true
		ORDER BY up.purchase_date
	`, userID, UnlimitedWeekPackageID)
	return ups, err
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]UserPackage, error) {
	ups := []UserPackage{}
	err := db.GetExecutor(ctx, r.db).SelectContext(ctx, &ups, selectUserPackage+`
		WHERE up.user_id = $1
		ORDER BY up.created_at DESC
	`, userID)
	return ups, err
}

func (r *repository) Create(ctx context.Context, up *UserPackage) error {
	return db.GetExecutor(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO user_packages (user_id, package_id, classes_remaining, classes_used, purchase_date, expiry_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, up.UserID, up.PackageID, up.ClassesRemaining, up.ClassesUsed, up.PurchaseDate, up.ExpiryDate, up.IsActive,
	).Scan(&up.ID, &up.CreatedAt)
}

// ConsumeCredit moves one class from remaining to used.
func (r *repository) ConsumeCredit(ctx context.Context, id int) error {
	result, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE user_packages
		SET classes_remaining = classes_remaining - 1,
		    classes_used = classes_used + 1
		WHERE id = $1 AND classes_remaining > 0
	`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCreditsLeft
	}
	return nil
}

// RestoreCredit undoes ConsumeCredit.
func (r *repository) RestoreCredit(ctx context.Context, id int) error {
	result, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE user_packages
		SET classes_remaining = classes_remaining + 1,
		    classes_used = classes_used - 1
		WHERE id = $1 AND classes_used > 0
	`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserPackageNotFound
	}
	return nil
}
