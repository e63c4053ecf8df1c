// Package memstore is an in-memory implementation of the booking repositories
// for tests and local runs. WithinTx serializes transactions behind one lock
// and restores a snapshot when fn fails.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"innata/internal/balance"
	"innata/internal/classes"
	"innata/internal/packages"
	"innata/internal/reservation"
	"innata/internal/waitlist"
)

type state struct {
	classes      map[int]classes.ScheduledClass
	catalog      map[int]packages.Package
	userPackages map[int]packages.UserPackage
	reservations map[int]reservation.Reservation
	waitlist     []waitlist.Entry
	transactions []balance.Transaction
	balances     map[int]balance.AccountBalance
	seq          int
}

func (s *state) clone() *state {
	c := &state{
		classes:      make(map[int]classes.ScheduledClass, len(s.classes)),
		catalog:      make(map[int]packages.Package, len(s.catalog)),
		userPackages: make(map[int]packages.UserPackage, len(s.userPackages)),
		reservations: make(map[int]reservation.Reservation, len(s.reservations)),
		waitlist:     append([]waitlist.Entry(nil), s.waitlist...),
		transactions: append([]balance.Transaction(nil), s.transactions...),
		balances:     make(map[int]balance.AccountBalance, len(s.balances)),
		seq:          s.seq,
	}
	for k, v := range s.classes {
		c.classes[k] = v
	}
	for k, v := range s.catalog {
		c.catalog[k] = v
	}
	for k, v := range s.userPackages {
		c.userPackages[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

type txMarker struct{}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	// FailAppend, when set, is returned by the next balance Append.
	FailAppend error
}

func New() *Store {
	return &Store{
		st: &state{
			classes:      map[int]classes.ScheduledClass{},
			catalog:      map[int]packages.Package{},
			userPackages: map[int]packages.UserPackage{},
			reservations: map[int]reservation.Reservation{},
			balances:     map[int]balance.AccountBalance{},
		},
		now: time.Now,
	}
}

// lock takes the store lock unless ctx belongs to a transaction that holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID() int {
	s.st.seq++
	return s.st.seq
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) AddClass(c classes.ScheduledClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	}
	if c.Status == "" {
		c.Status = classes.StatusScheduled
	}
	s.st.classes[c.ID] = c
	return c.ID
}

func (s *Store) AddPackage(p packages.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.catalog[p.ID] = p
}

func (s *Store) AddUserPackage(up packages.UserPackage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if up.ID == 0 {
		up.ID = s.nextID()
	}
	if p, ok := s.st.catalog[up.PackageID]; ok && up.PackageName == "" {
		up.PackageName = p.Name
	}
	s.st.userPackages[up.ID] = up
	return up.ID
}

func (s *Store) AddReservation(r reservation.Reservation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.nextID()
	}
	s.st.reservations[r.ID] = r
	return r.ID
}

func (s *Store) Class(id int) classes.ScheduledClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.classes[id]
}

func (s *Store) UserPackage(id int) packages.UserPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userPackages[id]
}

// AllReservations returns every reservation ordered by id.
func (s *Store) AllReservations() []reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reservation.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) WaitlistEntries() []waitlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]waitlist.Entry(nil), s.st.waitlist...)
}

func (s *Store) Transactions() []balance.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]balance.Transaction(nil), s.st.transactions...)
}

func (s *Store) Balance(userID int) balance.AccountBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.balances[userID]
}

func (s *Store) Classes() classes.Repository          { return classRepo{s} }
func (s *Store) Packages() packages.Repository        { return packageRepo{s} }
func (s *Store) Reservations() reservation.Repository { return reservationRepo{s} }
func (s *Store) Waitlist() waitlist.Repository        { return waitlistRepo{s} }
func (s *Store) Ledger() balance.Repository           { return ledgerRepo{s} }

var errNotInTx = errors.New("memstore: row lock requested outside a transaction")
