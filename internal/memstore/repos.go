package memstore

import (
	"context"
	"sort"
	"time"

	"innata/internal/balance"
	"innata/internal/calendar"
	"innata/internal/classes"
	"innata/internal/packages"
	"innata/internal/reservation"
	"innata/internal/waitlist"
)

type classRepo struct{ s *Store }

func (r classRepo) GetByID(ctx context.Context, id int) (*classes.ScheduledClass, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.classes[id]
	if !ok {
		return nil, classes.ErrClassNotFound
	}
	return &c, nil
}

func (r classRepo) GetByIDForUpdate(ctx context.Context, id int) (*classes.ScheduledClass, error) {
	if ctx.Value(txMarker{}) == nil {
		return nil, errNotInTx
	}
	return r.GetByID(ctx, id)
}

func (r classRepo) DecrementAvailableSpots(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.classes[id]
	if !ok || c.AvailableSpots <= 0 {
		return classes.ErrNoSpotsLeft
	}
	c.AvailableSpots--
	r.s.st.classes[id] = c
	return nil
}

func (r classRepo) IncrementAvailableSpots(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.classes[id]
	if !ok || c.AvailableSpots >= c.MaxCapacity {
		return classes.ErrAtFullCapacity
	}
	c.AvailableSpots++
	r.s.st.classes[id] = c
	return nil
}

type packageRepo struct{ s *Store }

func (r packageRepo) ListCatalog(ctx context.Context) ([]packages.Package, error) {
	defer r.s.lock(ctx)()
	out := []packages.Package{}
	for _, p := range r.s.st.catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r packageRepo) GetPackage(ctx context.Context, id int) (*packages.Package, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.st.catalog[id]
	if !ok {
		return nil, packages.ErrPackageNotFound
	}
	return &p, nil
}

func (r packageRepo) GetUserPackage(ctx context.Context, id int) (*packages.UserPackage, error) {
	defer r.s.lock(ctx)()
	up, ok := r.s.st.userPackages[id]
	if !ok {
		return nil, packages.ErrUserPackageNotFound
	}
	return &up, nil
}

func (r packageRepo) filter(ctx context.Context, keep func(packages.UserPackage) bool, less func(a, b packages.UserPackage) bool) []packages.UserPackage {
	defer r.s.lock(ctx)()
	out := []packages.UserPackage{}
	for _, up := range r.s.st.userPackages {
		if keep(up) {
			out = append(out, up)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r packageRepo) ListActiveWithCredits(ctx context.Context, userID int, now time.Time) ([]packages.UserPackage, error) {
	return r.filter(ctx, func(up packages.UserPackage) bool {
		return up.UserID == userID && up.Usable(now)
	}, func(a, b packages.UserPackage) bool {
		if a.IsUnlimitedWeek() != b.IsUnlimitedWeek() {
			return !a.IsUnlimitedWeek()
		}
		if a.PackageID != b.PackageID {
			return a.PackageID < b.PackageID
		}
		return a.ExpiryDate.Before(b.ExpiryDate)
	}), nil
}

func (r packageRepo) ListUnlimitedWeek(ctx context.Context, userID int) ([]packages.UserPackage, error) {
	return r.filter(ctx, func(up packages.UserPackage) bool {
		return up.UserID == userID && up.IsUnlimitedWeek() && up.IsActive
	}, func(a, b packages.UserPackage) bool {
		return a.PurchaseDate.Before(b.PurchaseDate)
	}), nil
}

func (r packageRepo) ListByUser(ctx context.Context, userID int) ([]packages.UserPackage, error) {
	return r.filter(ctx, func(up packages.UserPackage) bool {
		return up.UserID == userID
	}, func(a, b packages.UserPackage) bool {
		return a.ID > b.ID
	}), nil
}

func (r packageRepo) Create(ctx context.Context, up *packages.UserPackage) error {
	defer r.s.lock(ctx)()
	up.ID = r.s.nextID()
	up.CreatedAt = r.s.now()
	if p, ok := r.s.st.catalog[up.PackageID]; ok {
		up.PackageName = p.Name
	}
	r.s.st.userPackages[up.ID] = *up
	return nil
}

func (r packageRepo) ConsumeCredit(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	up, ok := r.s.st.userPackages[id]
	if !ok || up.ClassesRemaining <= 0 {
		return packages.ErrNoCreditsLeft
	}
	up.ClassesRemaining--
	up.ClassesUsed++
	r.s.st.userPackages[id] = up
	return nil
}

func (r packageRepo) RestoreCredit(ctx context.Context, id int) error {
	defer r.s.lock(ctx)()
	up, ok := r.s.st.userPackages[id]
	if !ok || up.ClassesUsed <= 0 {
		return packages.ErrUserPackageNotFound
	}
	up.ClassesRemaining++
	up.ClassesUsed--
	r.s.st.userPackages[id] = up
	return nil
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) withClass(res reservation.Reservation) reservation.Reservation {
	if c, ok := r.s.st.classes[res.ScheduledClassID]; ok {
		res.ClassName = c.ClassName
		res.ClassDate = c.Date
		res.ClassTime = c.Time
	}
	return res
}

func (r reservationRepo) Create(ctx context.Context, res *reservation.Reservation) error {
	defer r.s.lock(ctx)()
	if res.Status == reservation.StatusConfirmed {
		for _, other := range r.s.st.reservations {
			if other.ScheduledClassID == res.ScheduledClassID && other.Status == reservation.StatusConfirmed && other.Slot() == res.Slot() {
				return reservation.ErrSlotTaken
			}
		}
	}
	res.ID = r.s.nextID()
	res.CreatedAt = r.s.now()
	res.UpdatedAt = res.CreatedAt
	r.s.st.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) GetByID(ctx context.Context, id int) (*reservation.Reservation, error) {
	defer r.s.lock(ctx)()
	res, ok := r.s.st.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	res = r.withClass(res)
	return &res, nil
}

func (r reservationRepo) GetByIDForUpdate(ctx context.Context, id int) (*reservation.Reservation, error) {
	if ctx.Value(txMarker{}) == nil {
		return nil, errNotInTx
	}
	return r.GetByID(ctx, id)
}

func (r reservationRepo) UpdateStatus(ctx context.Context, id int, status reservation.Status) error {
	defer r.s.lock(ctx)()
	res, ok := r.s.st.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	res.Status = status
	res.UpdatedAt = r.s.now()
	r.s.st.reservations[id] = res
	return nil
}

func (r reservationRepo) exists(ctx context.Context, match func(reservation.Reservation) bool) bool {
	defer r.s.lock(ctx)()
	for _, res := range r.s.st.reservations {
		if match(res) {
			return true
		}
	}
	return false
}

func (r reservationRepo) IsSlotTaken(ctx context.Context, classID int, bikeNumber *int) (bool, error) {
	slot := reservation.NullSlot
	if bikeNumber != nil {
		slot = *bikeNumber
	}
	return r.exists(ctx, func(res reservation.Reservation) bool {
		return res.ScheduledClassID == classID && res.Status == reservation.StatusConfirmed && res.Slot() == slot
	}), nil
}

func (r reservationRepo) HasConfirmedForClass(ctx context.Context, userID, classID int) (bool, error) {
	return r.exists(ctx, func(res reservation.Reservation) bool {
		return res.UserID == userID && res.ScheduledClassID == classID && res.Status == reservation.StatusConfirmed
	}), nil
}

func (r reservationRepo) HasActiveForClass(ctx context.Context, userID, classID int) (bool, error) {
	return r.exists(ctx, func(res reservation.Reservation) bool {
		return res.UserID == userID && res.ScheduledClassID == classID &&
			(res.Status == reservation.StatusConfirmed || res.Status == reservation.StatusPending)
	}), nil
}

func (r reservationRepo) CountConfirmedForUserPackage(ctx context.Context, userPackageID int) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, res := range r.s.st.reservations {
		if res.UserPackageID != nil && *res.UserPackageID == userPackageID && res.Status == reservation.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (r reservationRepo) OccupiedSlots(ctx context.Context, classID int) ([]int, error) {
	defer r.s.lock(ctx)()
	slots := []int{}
	for _, res := range r.s.st.reservations {
		if res.ScheduledClassID == classID && res.Status == reservation.StatusConfirmed {
			slots = append(slots, res.Slot())
		}
	}
	sort.Ints(slots)
	return slots, nil
}

func (r reservationRepo) List(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	defer r.s.lock(ctx)()
	out := []reservation.Reservation{}
	for _, res := range r.s.st.reservations {
		if f.ClassID != 0 && res.ScheduledClassID != f.ClassID {
			continue
		}
		if f.UserID != 0 && res.UserID != f.UserID {
			continue
		}
		if f.Status != nil && res.Status != *f.Status {
			continue
		}
		res = r.withClass(res)
		if f.Upcoming && res.ClassDate.Before(calendar.DateOf(r.s.now())) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Offset >= uint64(len(out)) {
		return []reservation.Reservation{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < uint64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

type waitlistRepo struct{ s *Store }

func (r waitlistRepo) CountForClass(ctx context.Context, classID int) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, e := range r.s.st.waitlist {
		if e.ScheduledClassID == classID {
			n++
		}
	}
	return n, nil
}

func (r waitlistRepo) Insert(ctx context.Context, e *waitlist.Entry) error {
	defer r.s.lock(ctx)()
	e.ID = r.s.nextID()
	e.CreatedAt = r.s.now()
	r.s.st.waitlist = append(r.s.st.waitlist, *e)
	return nil
}

func (r waitlistRepo) ListByClass(ctx context.Context, classID int) ([]waitlist.Entry, error) {
	defer r.s.lock(ctx)()
	out := []waitlist.Entry{}
	for _, e := range r.s.st.waitlist {
		if e.ScheduledClassID == classID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(ctx context.Context, tx *balance.Transaction) error {
	defer r.s.lock(ctx)()
	if err := r.s.FailAppend; err != nil {
		r.s.FailAppend = nil
		return err
	}
	tx.ID = r.s.nextID()
	tx.CreatedAt = r.s.now()
	r.s.st.transactions = append(r.s.st.transactions, *tx)
	return nil
}

func (r ledgerRepo) RefreshBalance(ctx context.Context, userID int) (*balance.AccountBalance, error) {
	defer r.s.lock(ctx)()
	b := balance.AccountBalance{UserID: userID, UpdatedAt: r.s.now()}
	for _, up := range r.s.st.userPackages {
		if up.UserID == userID && up.IsActive {
			b.ClassesAvailable += up.ClassesRemaining
			b.ClassesUsed += up.ClassesUsed
		}
	}
	r.s.st.balances[userID] = b
	return &b, nil
}

func (r ledgerRepo) GetBalance(ctx context.Context, userID int) (*balance.AccountBalance, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.balances[userID]
	if !ok {
		b = balance.AccountBalance{UserID: userID}
	}
	return &b, nil
}

func (r ledgerRepo) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]balance.Transaction, error) {
	defer r.s.lock(ctx)()
	out := []balance.Transaction{}
	for i := len(r.s.st.transactions) - 1; i >= 0; i-- {
		if r.s.st.transactions[i].UserID == userID {
			out = append(out, r.s.st.transactions[i])
		}
	}
	if offset >= len(out) {
		return []balance.Transaction{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
