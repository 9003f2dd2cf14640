package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

const (
	defaultActivityRetention = 90 * 24 * time.Hour
	defaultCacheSpec         = "@hourly"
	defaultActivitySpec      = "@daily"
)

// Cleaner coordinates background maintenance tasks: purging lapsed cache
// entries and pruning aged activity log records.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	cacheSchedule    string
	activitySchedule string
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

// WithActivityRetention adjusts how long activity log entries are retained.
func WithActivityRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache entry cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithActivitySchedule overrides the cron specification for activity log pruning.
func WithActivitySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.activitySchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		now:              time.Now,
		retention:        defaultActivityRetention,
		cacheSchedule:    defaultCacheSpec,
		activitySchedule: defaultActivitySpec,
		log:              logger.WithModule("maintenance"),
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
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
		if _, err := CleanupCacheEntries(context.Background(), c.db, c.now()); err != nil {
			c.log.Warn("cache entry cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if c.retention > 0 {
		if _, err := c.cron.AddFunc(c.activitySchedule, func() {
			cutoff := c.now().Add(-c.retention)
			if _, err := CleanupActivityLogs(context.Background(), c.db, cutoff); err != nil {
				c.log.Warn("activity log cleanup failed", zap.Error(err))
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

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := CleanupCacheEntries(ctx, c.db, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.retention > 0 {
		cutoff := c.now().Add(-c.retention)
		if _, err := CleanupActivityLogs(ctx, c.db, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupCacheEntries removes database cache rows whose expiry has lapsed.
// Rows without an expiry are kept; the version counter lives in one of them.
func CleanupCacheEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup cache entries: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at > ? AND expires_at < ?", time.Time{}, now).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup cache entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupActivityLogs removes activity records created before the cutoff.
func CleanupActivityLogs(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup activity logs: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup activity logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
