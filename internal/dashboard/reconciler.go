package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/pkg/logger"
	"github.com/trustweave/portal/pkg/metrics"
)

// DefaultRefreshInterval is the fallback polling cadence for the dashboard.
const DefaultRefreshInterval = 30 * time.Second

// Snapshot is an immutable view of the record list served to the dashboard.
type Snapshot struct {
	Records     []services.RecordView `json:"records"`
	RefreshedAt time.Time             `json:"refreshedAt"`
	Generation  uint64                `json:"generation"`
}

// Reconciler keeps the admin dashboard's record list converged with the
// database. Every refresh carries a generation number; a slow refresh that
// finishes after a newer one started is discarded, so the cache can only
// move forward.
type Reconciler struct {
	records  *services.RecordService
	interval time.Duration
	now      func() time.Time

	gen atomic.Uint64

	mu       sync.RWMutex
	snapshot Snapshot
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler constructs a Reconciler polling at the given interval.
func NewReconciler(records *services.RecordService, interval time.Duration, opts ...Option) (*Reconciler, error) {
	if records == nil {
		return nil, errors.New("dashboard: record service is required")
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	r := &Reconciler{
		records:  records,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run polls the record list until the context is cancelled. An initial
// refresh happens immediately so the dashboard never starts empty.
func (r *Reconciler) Run(ctx context.Context) {
	if _, err := r.Refresh(ctx, "interval"); err != nil {
		logger.Warn("dashboard: initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx, "interval"); err != nil {
				logger.Warn("dashboard: scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh reloads the record list from the database. The returned snapshot is
// the reconciler's current view, which may be newer than this refresh if a
// later one already landed.
func (r *Reconciler) Refresh(ctx context.Context, trigger string) (Snapshot, error) {
	gen := r.gen.Add(1)

	views, err := r.records.ListAll(ctx)
	if err != nil {
		return r.Snapshot(), err
	}

	metrics.DashboardRefreshes.WithLabelValues(trigger).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	// A refresh that started before the currently applied one is stale.
	if gen > r.snapshot.Generation {
		r.snapshot = Snapshot{
			Records:     views,
			RefreshedAt: r.now(),
			Generation:  gen,
		}
	}
	return r.snapshot, nil
}

// Snapshot returns the current cached view without touching the database.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// ApplyDecision patches a single record in the cached view after the database
// write has been confirmed, then triggers a converging refresh in the
// background. The patch keeps the dashboard responsive while the refresh
// guarantees eventual agreement with the database.
func (r *Reconciler) ApplyDecision(view services.RecordView) {
	r.mu.Lock()
	for i := range r.snapshot.Records {
		if r.snapshot.Records[i].ID == view.ID {
			r.snapshot.Records[i] = view
			break
		}
	}
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := r.Refresh(ctx, "converge"); err != nil {
			logger.Warn("dashboard: converge refresh failed", zap.Error(err))
		}
	}()
}
