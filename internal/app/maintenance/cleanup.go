package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/trustweave/portal/internal/auth"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultDraftTTL           = 30 * 24 * time.Hour

	defaultSessionSpec = "@hourly"
	defaultAuditSpec   = "@daily"
	defaultDraftSpec   = "@daily"
)

// Cleaner coordinates background maintenance: purging expired sessions,
// enforcing audit retention, and removing abandoned wizard drafts.
type Cleaner struct {
	sessions *iauth.SessionService
	audit    *services.AuditService
	wizards  *services.WizardService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	retention int
	draftTTL  time.Duration

	sessionSchedule string
	auditSchedule   string
	draftSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithDraftTTL adjusts how long untouched wizard drafts are kept.
func WithDraftTTL(ttl time.Duration) Option {
	return func(cleaner *Cleaner) {
		if ttl > 0 {
			cleaner.draftTTL = ttl
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(sessions *iauth.SessionService, audit *services.AuditService, wizards *services.WizardService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		audit:           audit,
		wizards:         wizards,
		now:             time.Now,
		retention:       defaultAuditRetentionDays,
		draftTTL:        defaultDraftTTL,
		sessionSchedule: defaultSessionSpec,
		auditSchedule:   defaultAuditSpec,
		draftSchedule:   defaultDraftSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.sessions.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			cutoff := c.now().AddDate(0, 0, -c.retention)
			if _, err := c.audit.PurgeOlderThan(context.Background(), cutoff); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.wizards != nil && c.draftTTL > 0 {
		if _, err := c.cron.AddFunc(c.draftSchedule, func() {
			if _, err := c.wizards.PurgeStaleDrafts(context.Background(), c.draftTTL); err != nil {
				c.log.Warn("draft cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		cutoff := c.now().AddDate(0, 0, -c.retention)
		if _, err := c.audit.PurgeOlderThan(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.wizards != nil && c.draftTTL > 0 {
		if _, err := c.wizards.PurgeStaleDrafts(ctx, c.draftTTL); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
