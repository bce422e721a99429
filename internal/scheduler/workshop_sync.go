// Package scheduler drives the periodic full sync and the nightly
// cache cleanup.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
)

// WorkshopSyncScheduler manages the periodic full sync from FileMaker
// and the nightly prune of stale cache rows.
type WorkshopSyncScheduler struct {
	settingsStore *settingsstore.SettingsStore
	engine        *syncengine.Engine
	logger        *logging.Service

	workshopRetention time.Duration
	logRetention      time.Duration
	pruneSchedule     string

	cron        *cron.Cron
	syncEntryID cron.EntryID
	mu          sync.RWMutex
	isRunning   bool
	isSyncing   bool
	cancelFunc  context.CancelFunc
}

// NewWorkshopSyncScheduler creates a new scheduler instance.
func NewWorkshopSyncScheduler(
	settingsStore *settingsstore.SettingsStore,
	engine *syncengine.Engine,
	logger *logging.Service,
	workshopRetention, logRetention time.Duration,
	pruneSchedule string,
) *WorkshopSyncScheduler {
	return &WorkshopSyncScheduler{
		settingsStore:     settingsStore,
		engine:            engine,
		logger:            logger,
		workshopRetention: workshopRetention,
		logRetention:      logRetention,
		pruneSchedule:     pruneSchedule,
		cron:              cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sync is enabled.
func (s *WorkshopSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.settingsStore.GetSyncEnabled() {
		log.Printf("Workshop sync scheduler: disabled")
		return nil
	}

	schedule := s.settingsStore.GetSyncSchedule()
	if err := settingsstore.ValidateCronSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	syncEntryID, err := s.cron.AddFunc(schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.syncEntryID = syncEntryID

	if s.pruneSchedule != "" {
		if _, err := s.cron.AddFunc(s.pruneSchedule, func() {
			s.runPrune()
		}); err != nil {
			return fmt.Errorf("failed to schedule prune job: %w", err)
		}
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(schedule)
	log.Printf("Workshop sync scheduler: started with schedule '%s' (%s). Next run: %v",
		schedule,
		settingsstore.GetCronDescription(schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *WorkshopSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Workshop sync scheduler: stopped")
}

// Reschedule restarts the scheduler after a settings change.
func (s *WorkshopSyncScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	return s.Start(context.Background())
}

// RunNow triggers an immediate sync in the background.
func (s *WorkshopSyncScheduler) RunNow() error {
	go s.runSync()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *WorkshopSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a sync is currently in progress.
func (s *WorkshopSyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next scheduled sync will occur.
func (s *WorkshopSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.syncEntryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *WorkshopSyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Workshop sync: skipped (already syncing)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if !s.settingsStore.GetSyncEnabled() {
		log.Printf("Workshop sync: skipped (disabled)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.engine.SyncAll(ctx)
	if err != nil {
		if errors.Is(err, syncengine.ErrSyncInProgress) {
			log.Printf("Workshop sync: skipped (manual sync in progress)")
			return
		}
		log.Printf("Workshop sync: failed: %v", err)
		return
	}

	log.Printf("Workshop sync: synced %d workshops, %d sessions in %v",
		result.WorkshopsSynced, result.SessionsSynced, result.Duration.Round(time.Millisecond))
}

func (s *WorkshopSyncScheduler) runPrune() {
	result, err := s.engine.Prune(s.workshopRetention, s.logRetention)
	if err != nil {
		log.Printf("Workshop prune: failed: %v", err)
		return
	}
	log.Printf("Workshop prune: removed %d workshops, %d sessions, %d log entries",
		result.WorkshopsPruned, result.SessionsPruned, result.LogEntriesPruned)
}
