// Package scheduler runs periodic maintenance: cache expiry sweeps and
// conversation retention purges.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/cache"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
	"github.com/robfig/cron/v3"
)

const purgeTimeout = 30 * time.Second

// Maintenance owns the cron runner for background upkeep. Both jobs are
// optional; an empty schedule disables the job.
type Maintenance struct {
	cron          *cron.Cron
	cache         *cache.Cache
	repo          store.Store
	retentionDays int
	logger        *slog.Logger
}

// New creates a Maintenance runner.
func New(c *cache.Cache, repo store.Store, retentionDays int, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{
		cron:          cron.New(),
		cache:         c,
		repo:          repo,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start registers the configured jobs and starts the runner. Schedules use
// standard five-field cron syntax and are validated up front.
func (m *Maintenance) Start(cacheCleanupSpec, retentionSpec string) error {
	if cacheCleanupSpec != "" {
		if _, err := cron.ParseStandard(cacheCleanupSpec); err != nil {
			return fmt.Errorf("invalid cache cleanup schedule %q: %w", cacheCleanupSpec, err)
		}
		if _, err := m.cron.AddFunc(cacheCleanupSpec, m.cleanupCache); err != nil {
			return fmt.Errorf("register cache cleanup job: %w", err)
		}
	}

	if retentionSpec != "" {
		if _, err := cron.ParseStandard(retentionSpec); err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", retentionSpec, err)
		}
		if _, err := m.cron.AddFunc(retentionSpec, m.purgeConversations); err != nil {
			return fmt.Errorf("register retention job: %w", err)
		}
	}

	m.cron.Start()
	return nil
}

func (m *Maintenance) cleanupCache() {
	removed := m.cache.CleanupExpired()
	if removed > 0 {
		m.logger.Info("Cache cleanup removed expired entries", "removed", removed)
	}
}

func (m *Maintenance) purgeConversations() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	deleted, err := m.repo.PurgeOlderThan(ctx, m.retentionDays)
	if err != nil {
		m.logger.Error("Scheduled retention purge failed",
			"retention_days", m.retentionDays, "error", err)
		return
	}
	if deleted > 0 {
		m.logger.Info("Scheduled retention purge complete",
			"retention_days", m.retentionDays, "deleted", deleted)
	}
}

// Stop halts the runner and waits for in-flight jobs to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}
