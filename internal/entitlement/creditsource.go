package entitlement

import (
	"time"

	"innata/internal/packages"
	"innata/internal/reservation"
)

// CreditSource is what pays for a reservation. It is resolved once and the
// set of implementations is closed.
type CreditSource interface {
	PaymentMethod() reservation.PaymentMethod
	// UserPackage is nil for external payments.
	UserPackage() *packages.UserPackage
	creditSource()
}

type NormalCredit struct {
	Package *packages.UserPackage
}

type UnlimitedWeekCredit struct {
	Package   *packages.UserPackage
	WeekStart time.Time
	WeekEnd   time.Time
}

type ExternalPayment struct {
	Reference string
}

func (NormalCredit) PaymentMethod() reservation.PaymentMethod {
	return reservation.PaymentPackage
}

func (c NormalCredit) UserPackage() *packages.UserPackage { return c.Package }
func (NormalCredit) creditSource()                        {}

func (UnlimitedWeekCredit) PaymentMethod() reservation.PaymentMethod {
	return reservation.PaymentUnlimitedWeek
}

func (c UnlimitedWeekCredit) UserPackage() *packages.UserPackage { return c.Package }
func (UnlimitedWeekCredit) creditSource()                        {}

func (ExternalPayment) PaymentMethod() reservation.PaymentMethod {
	return reservation.PaymentExternal
}

func (ExternalPayment) UserPackage() *packages.UserPackage { return nil }
func (ExternalPayment) creditSource()                      {}

func newUnlimitedWeekCredit(up *packages.UserPackage) UnlimitedWeekCredit {
	return UnlimitedWeekCredit{Package: up, WeekStart: up.PurchaseDate, WeekEnd: up.ExpiryDate}
}
