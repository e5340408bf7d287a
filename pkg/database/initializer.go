package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appErr "github.com/clanhub/api/pkg/errors"
	"github.com/clanhub/api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Initializer brings the schema up and tracks readiness separately from liveness.
type Initializer struct {
	db      *gorm.DB
	backoff backoff
	ready   atomic.Bool
	mu      sync.Mutex
}

func NewInitializer(db *gorm.DB, retries int) *Initializer {
	return &Initializer{
		db: db,
		backoff: backoff{
			maxRetries: retries,
			delay:      500 * time.Millisecond,
			maxDelay:   5 * time.Second,
		},
	}
}

// Run pings the database and migrates the schema, retrying with exponential
// backoff. The caller decides whether a final failure is fatal.
func (i *Initializer) Run(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		err := i.attempt(ctx)
		if err == nil {
			return nil
		}
		if attempt >= i.backoff.maxRetries {
			return fmt.Errorf("schema init failed after %d attempts: %w", attempt+1, err)
		}
		delay := i.backoff.nextDelay(attempt)
		logger.L().Warn("schema init attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("schema init canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// Ready reports whether the schema has been initialized.
func (i *Initializer) Ready() bool { return i.ready.Load() }

// Check is the readiness probe. A not-ready initializer gets one more
// attempt, so a database that comes up after boot is picked up without a restart.
func (i *Initializer) Check(ctx context.Context) error {
	if !i.ready.Load() {
		if err := i.attempt(ctx); err != nil {
			return appErr.Wrap(err, appErr.CodeUnavailable, "database schema not initialized")
		}
	}
	if err := i.ping(ctx); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "database unreachable")
	}
	return nil
}

func (i *Initializer) attempt(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready.Load() {
		return nil
	}
	if err := i.ping(ctx); err != nil {
		return err
	}
	if err := Migrate(i.db.WithContext(ctx)); err != nil {
		return err
	}
	i.ready.Store(true)
	logger.L().Info("database schema ready")
	return nil
}

func (i *Initializer) ping(ctx context.Context) error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return fmt.Errorf("db db() error: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	if attempt > 30 {
		return b.maxDelay
	}
	d := b.delay << attempt
	if d <= 0 || d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
