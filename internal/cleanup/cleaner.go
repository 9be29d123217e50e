// Package cleanup prunes notifications that were read long ago.
package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes read notifications created before a cutoff
type Pruner interface {
	DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Cleaner handles periodic cleanup of read notifications
type Cleaner struct {
	pruner    Pruner
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewCleaner creates a new cleanup worker
func NewCleaner(pruner Pruner, interval, retention time.Duration, logger *zap.Logger) *Cleaner {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &Cleaner{
		pruner:    pruner,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins the cleanup worker in a goroutine. The returned channel is
// closed once the worker has stopped.
func (c *Cleaner) Start(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.run(ctx)
	}()
	return stopped
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	c.logger.Info("cleanup worker started",
		zap.Duration("interval", c.interval),
		zap.Duration("retention", c.retention),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup removes read notifications older than the retention window
func (c *Cleaner) cleanup(ctx context.Context) {
	cutoff := c.now().Add(-c.retention)
	c.logger.Debug("running cleanup cycle", zap.Time("cutoff", cutoff))

	deleted, err := c.pruner.DeleteReadNotificationsBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("failed to prune notifications", zap.Error(err))
		}
		return
	}

	if deleted > 0 {
		c.logger.Info("pruned read notifications", zap.Int64("count", deleted))
	}
}
