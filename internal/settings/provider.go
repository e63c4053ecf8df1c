package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"innata/internal/calendar"
	"innata/internal/logger"
	"innata/internal/metrics"
)

// Provider serves the tunables from a snapshot that is refreshed after ttl or
// dropped by Invalidate. Reads are lock-free; a stale snapshot may be served
// for up to ttl unless a write went through Set.
type Provider struct {
	repo    Repository
	ttl     time.Duration
	clock   calendar.Clock
	current atomic.Pointer[Values]
	// gen is bumped by Invalidate; a load that overlapped a bump is not cached.
	gen    atomic.Uint64
	loadMu sync.Mutex
}

type Option func(*Provider)

func WithClock(c calendar.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

func NewProvider(repo Repository, ttl time.Duration, opts ...Option) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	p := &Provider{repo: repo, ttl: ttl, clock: calendar.SystemClock{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) GraceTimeHours(ctx context.Context) int {
	return p.Values(ctx).GraceTimeHours
}

func (p *Provider) WeeklyBookingLimit(ctx context.Context) int {
	return p.Values(ctx).WeeklyBookingLimit
}

// Values returns the current snapshot, reloading it when expired.
func (p *Provider) Values(ctx context.Context) Values {
	if v := p.current.Load(); v != nil && p.clock.Now().Sub(v.LoadedAt) < p.ttl {
		return *v
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if v := p.current.Load(); v != nil && p.clock.Now().Sub(v.LoadedAt) < p.ttl {
		return *v
	}

	gen := p.gen.Load()
	v, err := p.load(ctx)
	if err != nil {
		logger.Error("failed to refresh settings", "error", err)
		if old := p.current.Load(); old != nil {
			return *old
		}
		return Values{
			GraceTimeHours:     DefaultGraceTimeHours,
			WeeklyBookingLimit: DefaultWeeklyBookingLimit,
		}
	}

	p.current.Store(v)
	if p.gen.Load() != gen {
		// rows may predate the write that invalidated
		p.current.CompareAndSwap(v, nil)
		return *v
	}
	metrics.RecordSettingsRefresh()
	return *v
}

// Set validates and persists value, then drops the cached snapshot before returning.
func (p *Provider) Set(ctx context.Context, key string, value int) error {
	if !knownKey(key) {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	if value <= 0 {
		return fmt.Errorf("setting %s must be positive", key)
	}

	if err := p.repo.Set(ctx, key, strconv.Itoa(value)); err != nil {
		return err
	}
	p.Invalidate()
	logger.Info("setting updated", "key", key, "value", value)
	return nil
}

func (p *Provider) Invalidate() {
	p.gen.Add(1)
	p.current.Store(nil)
}

func (p *Provider) load(ctx context.Context) (*Values, error) {
	rows, err := p.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	v := &Values{
		GraceTimeHours:     DefaultGraceTimeHours,
		WeeklyBookingLimit: DefaultWeeklyBookingLimit,
		LoadedAt:           p.clock.Now(),
	}
	for _, s := range rows {
		n, err := strconv.Atoi(s.Value)
		if err != nil || n <= 0 {
			logger.Warn("ignoring invalid setting", "key", s.Key, "value", s.Value)
			continue
		}
		switch s.Key {
		case KeyGraceTimeHours:
			v.GraceTimeHours = n
		case KeyWeeklyBookingLimit:
			v.WeeklyBookingLimit = n
		}
	}
	return v, nil
}
