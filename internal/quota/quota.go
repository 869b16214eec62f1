// Package quota serializes access to each user's metered usage counters
// (scans, fixes, exports) so concurrent requests from the same user can
// never push used above limit (spec §3, §5, testable property 4). The
// arithmetic lives on domain.QuotaRecord; this package adds the per-user
// locking and the persistence round-trip around it.
package quota

import (
	"context"
	"sync"
	"time"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/logging"
	"compliscan/internal/scanerr"
)

// Store loads and persists a single user's quota record. Backed by
// internal/store in production; tests may supply an in-memory fake.
type Store interface {
	LoadQuota(ctx context.Context, userID string) (domain.QuotaRecord, bool, error)
	SaveQuota(ctx context.Context, rec domain.QuotaRecord) error
}

// Ledger serializes TryConsume/Refund/ResetPeriod per user via one mutex
// per user id, so two concurrent requests for the same user never
// interleave their read-modify-write of the stored record.
type Ledger struct {
	store Store
	cfg   config.QuotaConfig

	mu    sync.Mutex // guards locks map only
	locks map[string]*sync.Mutex
}

func New(store Store, cfg config.QuotaConfig) *Ledger {
	return &Ledger{
		store: store,
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lockFor(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// TryConsume reserves n units of kind for userID, creating a fresh
// default-plan record on first use and rolling the period forward if the
// stored one has expired. Returns ok=false with a nil error when the user
// is simply over quota; a non-nil error means the store itself failed.
func (l *Ledger) TryConsume(ctx context.Context, userID string, kind domain.QuotaKind, n int) (ok bool, remaining int, err error) {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.loadOrInit(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	rec = l.rollIfExpired(rec)

	ok, remaining = rec.TryConsume(kind, n)
	if !ok {
		logging.Get(logging.CategoryQuota).Info("quota: %s denied %s for user %s (remaining %d)", kind, userID, userID, remaining)
		// Still persist the rolled period even on denial, so the roll
		// isn't silently lost until the next successful consume.
		if err := l.store.SaveQuota(ctx, rec); err != nil {
			return false, remaining, err
		}
		return false, remaining, nil
	}
	if err := l.store.SaveQuota(ctx, rec); err != nil {
		return false, 0, err
	}
	return true, remaining, nil
}

// Remaining reports how many units of kind userID has left without
// consuming any, rolling the period forward first if it has expired.
func (l *Ledger) Remaining(ctx context.Context, userID string, kind domain.QuotaKind) (int, error) {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.loadOrInit(ctx, userID)
	if err != nil {
		return 0, err
	}
	rec = l.rollIfExpired(rec)
	return rec.Remaining(kind), nil
}

// Refund gives back n units of kind to userID, used when a scan or fix
// operation fails after quota was already reserved (spec §5).
func (l *Ledger) Refund(ctx context.Context, userID string, kind domain.QuotaKind, n int) error {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.loadOrInit(ctx, userID)
	if err != nil {
		return err
	}
	rec.Refund(kind, n)
	return l.store.SaveQuota(ctx, rec)
}

// ResetPeriod rolls userID onto a fresh billing period, used by plan
// upgrades/downgrades and scheduled period rollovers.
func (l *Ledger) ResetPeriod(ctx context.Context, userID string, start, end time.Time) error {
	lock := l.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.loadOrInit(ctx, userID)
	if err != nil {
		return err
	}
	rec.ScansUsed, rec.FixesUsed, rec.ExportsUsed = 0, 0, 0
	rec.PeriodStart, rec.PeriodEnd = start, end
	return l.store.SaveQuota(ctx, rec)
}

func (l *Ledger) loadOrInit(ctx context.Context, userID string) (domain.QuotaRecord, error) {
	rec, found, err := l.store.LoadQuota(ctx, userID)
	if err != nil {
		return domain.QuotaRecord{}, scanerr.Dependencyf("quota_store_load_failed", err, "could not load quota record for %s", userID)
	}
	if found {
		return rec, nil
	}
	return l.defaultRecord(userID), nil
}

func (l *Ledger) defaultRecord(userID string) domain.QuotaRecord {
	now := time.Now()
	return domain.QuotaRecord{
		UserID:       userID,
		Plan:         l.cfg.DefaultPlan,
		ScansLimit:   l.cfg.DefaultScansLimit,
		FixesLimit:   l.cfg.DefaultFixesLimit,
		ExportsLimit: l.cfg.DefaultExportsLimit,
		PeriodStart:  now,
		PeriodEnd:    now.AddDate(0, 1, 0),
	}
}

// rollIfExpired starts a fresh period with usage zeroed once PeriodEnd has
// passed; limits and plan are preserved.
func (l *Ledger) rollIfExpired(rec domain.QuotaRecord) domain.QuotaRecord {
	now := time.Now()
	if rec.PeriodEnd.IsZero() || now.Before(rec.PeriodEnd) {
		return rec
	}
	rec.ScansUsed, rec.FixesUsed, rec.ExportsUsed = 0, 0, 0
	rec.PeriodStart = now
	rec.PeriodEnd = now.AddDate(0, 1, 0)
	return rec
}
