package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/cache"
	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/pkg/logger"
)

const (
	defaultSessionSpec = "@hourly"
	defaultCacheSpec   = "@every 5m"
)

// Cleaner coordinates background maintenance: purging expired sessions,
// sweeping expired cache entries (in memory and in the durable table), and
// running scheduled content syncs.
type Cleaner struct {
	db       *gorm.DB
	sessions *iauth.SessionService
	memory   *cache.Memory
	sync     *content.SyncService
	hybrid   *content.HybridService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	sessionSchedule string
	cacheSchedule   string
	syncSchedule    string
	syncDirection   content.Direction
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

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache sweeps.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithScheduledSync enables a recurring content sync in the given direction.
func WithScheduledSync(spec string, direction content.Direction) Option {
	return func(cleaner *Cleaner) {
		cleaner.syncSchedule = spec
		cleaner.syncDirection = direction
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Nil dependencies
// cause the corresponding job to be skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, memory *cache.Memory, syncService *content.SyncService, hybrid *content.HybridService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		sessions:        sessions,
		memory:          memory,
		sync:            syncService,
		hybrid:          hybrid,
		now:             time.Now,
		sessionSchedule: defaultSessionSpec,
		cacheSchedule:   defaultCacheSpec,
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

	if c.memory != nil || c.db != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			c.sweepCaches(context.Background())
		}); err != nil {
			return err
		}
	}

	if c.sync != nil && c.syncSchedule != "" {
		if _, err := c.cron.AddFunc(c.syncSchedule, func() {
			ctx := context.Background()
			if _, err := c.sync.Run(ctx, c.syncDirection, false); err != nil {
				c.log.Warn("scheduled sync failed", zap.Error(err))
				return
			}
			if c.hybrid != nil {
				c.hybrid.InvalidatePages()
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

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	c.sweepCaches(ctx)

	return errs
}

func (c *Cleaner) sweepCaches(ctx context.Context) {
	if c.memory != nil {
		if removed := c.memory.Cleanup(); removed > 0 {
			c.log.Debug("memory cache swept", zap.Int("removed", removed))
		}
	}

	if c.db != nil {
		result := c.db.WithContext(ctx).
			Where("expires_at < ?", c.now()).
			Delete(&models.CacheEntry{})
		if result.Error != nil {
			c.log.Warn("cache table sweep failed", zap.Error(result.Error))
		} else if result.RowsAffected > 0 {
			c.log.Debug("cache table swept", zap.Int64("removed", result.RowsAffected))
		}
	}
}
