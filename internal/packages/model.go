package packages

import (
	"time"

	"innata/internal/calendar"

	"github.com/shopspring/decimal"
)

// UnlimitedWeekPackageID is the catalog id of the Unlimited Week package.
const UnlimitedWeekPackageID = 3

type Package struct {
	ID           int             `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	ClassCredits int             `db:"class_credits" json:"class_credits"`
	ValidityDays int             `db:"validity_days" json:"validity_days"`
	Price        decimal.Decimal `db:"price" json:"price"`
	IsActive     bool            `db:"is_active" json:"is_active"`
}

func (p *Package) IsUnlimitedWeek() bool {
	return p.ID == UnlimitedWeekPackageID
}

// UserPackage is a member's purchased instance of a catalog package. Rows are
// deactivated, never deleted.
type UserPackage struct {
	ID               int       `db:"id" json:"id"`
	UserID           int       `db:"user_id" json:"user_id"`
	PackageID        int       `db:"package_id" json:"package_id"`
	PackageName      string    `db:"package_name" json:"package_name"`
	ClassesRemaining int       `db:"classes_remaining" json:"classes_remaining"`
	ClassesUsed      int       `db:"classes_used" json:"classes_used"`
	PurchaseDate     time.Time `db:"purchase_date" json:"purchase_date"`
	ExpiryDate       time.Time `db:"expiry_date" json:"expiry_date"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

func (up *UserPackage) IsUnlimitedWeek() bool {
	return up.PackageID == UnlimitedWeekPackageID
}

// Usable reports whether the package can fund a booking at now.
func (up *UserPackage) Usable(now time.Time) bool {
	return up.IsActive && up.ClassesRemaining > 0 && !up.ExpiryDate.Before(now)
}

// CoversWeekOf reports whether an Unlimited Week package was contracted for
// the calendar week containing d.
func (up *UserPackage) CoversWeekOf(d time.Time) bool {
	return calendar.SameDate(up.PurchaseDate, calendar.WeekStart(d))
}

// Covers reports whether d falls inside [PurchaseDate, ExpiryDate] by date.
func (up *UserPackage) Covers(d time.Time) bool {
	day := calendar.DateOf(d)
	return !day.Before(calendar.DateOf(up.PurchaseDate)) && !day.After(calendar.DateOf(up.ExpiryDate))
}

// NewUserPackage builds an unsaved UserPackage for p purchased at purchasedAt.
// Unlimited Week purchases are pinned to the week containing weekOf.
func NewUserPackage(userID int, p *Package, purchasedAt, weekOf time.Time) *UserPackage {
	up := &UserPackage{
		UserID:           userID,
		PackageID:        p.ID,
		PackageName:      p.Name,
		ClassesRemaining: p.ClassCredits,
		IsActive:         true,
	}
	if p.IsUnlimitedWeek() {
		up.PurchaseDate = calendar.WeekStart(weekOf)
		up.ExpiryDate = calendar.WeekEnd(weekOf)
		return up
	}
	up.PurchaseDate = purchasedAt.UTC()
	up.ExpiryDate = purchasedAt.UTC().AddDate(0, 0, p.ValidityDays)
	return up
}

type AssignPackageRequest struct {
	PackageID int `json:"packageId" binding:"required,gt=0"`
	// WeekOf selects the contracted week for Unlimited Week, as YYYY-MM-DD.
	WeekOf string `json:"weekOf,omitempty"`
}
