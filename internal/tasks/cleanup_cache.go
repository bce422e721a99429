package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	syncengine "github.com/roe24/workshop-bridge/internal/sync"
)

// CachePruner removes stale workshops, orphan sessions, and old log
// entries.
type CachePruner interface {
	Prune(workshopRetention, logRetention time.Duration) (*syncengine.PruneResult, error)
}

// CleanupCacheTask removes cache rows older than the retention windows.
type CleanupCacheTask struct {
	WorkshopRetentionDays int `json:"workshop_retention_days"`
	LogRetentionDays      int `json:"log_retention_days"`
}

// Config returns the queue configuration for cache cleanup tasks.
func (t CleanupCacheTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_cache",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupCacheProcessor creates a processor function for CleanupCacheTask.
func CleanupCacheProcessor(pruner CachePruner) backlite.QueueProcessor[CleanupCacheTask] {
	return func(ctx context.Context, task CleanupCacheTask) error {
		if pruner == nil {
			return fmt.Errorf("cache pruner not configured")
		}

		workshopDays := task.WorkshopRetentionDays
		if workshopDays <= 0 {
			workshopDays = 365
		}
		logDays := task.LogRetentionDays
		if logDays <= 0 {
			logDays = 30
		}

		result, err := pruner.Prune(
			time.Duration(workshopDays)*24*time.Hour,
			time.Duration(logDays)*24*time.Hour,
		)
		if err != nil {
			return fmt.Errorf("cleanup cache: %w", err)
		}

		log.Printf("[TASK] Pruned %d workshops, %d sessions, %d log entries",
			result.WorkshopsPruned, result.SessionsPruned, result.LogEntriesPruned)
		return nil
	}
}

// NewCleanupCacheQueue creates a backlite queue for cache cleanup tasks.
func NewCleanupCacheQueue(pruner CachePruner) backlite.Queue {
	return backlite.NewQueue(CleanupCacheProcessor(pruner))
}
