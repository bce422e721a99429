package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
)

// WorkshopRefresher refreshes one cached workshop from the source.
type WorkshopRefresher interface {
	SyncOne(ctx context.Context, workshopNumber string) (*entities.Workshop, error)
}

// RefreshWorkshopTask re-syncs a single workshop record, typically
// queued right after a registration so the cached seat count catches up
// with the source.
type RefreshWorkshopTask struct {
	WorkshopNumber string `json:"workshop_number"`
}

// Config returns the queue configuration for workshop refresh tasks.
func (t RefreshWorkshopTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_workshop",
		MaxAttempts: 3,
		Backoff:     1 * time.Minute,
		Timeout:     1 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshWorkshopProcessor creates a processor function for RefreshWorkshopTask.
func RefreshWorkshopProcessor(refresher WorkshopRefresher) backlite.QueueProcessor[RefreshWorkshopTask] {
	return func(ctx context.Context, task RefreshWorkshopTask) error {
		if refresher == nil {
			return fmt.Errorf("workshop refresher not configured")
		}
		if task.WorkshopNumber == "" {
			return fmt.Errorf("refresh task missing workshop number")
		}

		if _, err := refresher.SyncOne(ctx, task.WorkshopNumber); err != nil {
			// A workshop that vanished from the source is not worth
			// retrying.
			if errors.Is(err, filemaker.ErrWorkshopNotFound) {
				log.Printf("[TASK] Workshop %s no longer on source, skipping refresh", task.WorkshopNumber)
				return nil
			}
			return fmt.Errorf("refresh workshop %s: %w", task.WorkshopNumber, err)
		}

		log.Printf("[TASK] Refreshed workshop %s", task.WorkshopNumber)
		return nil
	}
}

// NewRefreshWorkshopQueue creates a backlite queue for workshop refresh tasks.
func NewRefreshWorkshopQueue(refresher WorkshopRefresher) backlite.Queue {
	return backlite.NewQueue(RefreshWorkshopProcessor(refresher))
}
