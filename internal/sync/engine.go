// Package sync pulls workshop data from the FileMaker source into the
// local cache. A full run fetches the upcoming workshop list and, per
// workshop, its session set; a single-workshop refresh updates only the
// workshop record.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/normalize"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

const fetchLimit = 1000

// ErrSyncInProgress indicates another sync run holds the lock.
var ErrSyncInProgress = errors.New("a sync is already in progress")

// ErrEmptyFetch indicates the source returned zero workshops. The cache
// is left untouched: an empty result is far more likely a source-side
// fault than a genuinely empty catalog.
var ErrEmptyFetch = errors.New("source returned no workshops, cache left unchanged")

// Result summarizes one full sync run.
type Result struct {
	WorkshopsSynced int           `json:"workshops_synced"`
	SessionsSynced  int           `json:"sessions_synced"`
	Failed          int           `json:"failed"`
	Duration        time.Duration `json:"duration"`
}

// Engine coordinates sync runs. At most one run executes at a time;
// concurrent attempts fail fast with ErrSyncInProgress.
type Engine struct {
	repo   *workshops.Repository
	store  *settingsstore.SettingsStore
	logger *logging.Service

	// connect builds a fresh transport per run so credential changes
	// apply without a restart.
	connect func() (filemaker.Connector, error)

	mu sync.Mutex
}

// NewEngine creates a sync engine over the cache repository.
func NewEngine(repo *workshops.Repository, store *settingsstore.SettingsStore, logger *logging.Service) *Engine {
	return &Engine{
		repo:    repo,
		store:   store,
		logger:  logger,
		connect: store.BuildConnector,
	}
}

// SyncAll fetches every upcoming workshop and its sessions and applies
// them to the cache. Re-running against unchanged source data is a
// no-op on the cache contents.
func (e *Engine) SyncAll(ctx context.Context) (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	started := time.Now()
	e.logger.Info("full sync started", nil)

	result, err := e.syncAll(ctx)
	if err != nil {
		e.logger.Error("full sync failed", map[string]any{"error": err.Error()})
		if statusErr := e.store.SetSyncStatus(settingsstore.SyncStatusFailed, err.Error(), 0, 0); statusErr != nil {
			e.logger.Error("failed to record sync status", map[string]any{"error": statusErr.Error()})
		}
		return nil, err
	}

	result.Duration = time.Since(started)
	message := fmt.Sprintf("synced %d workshops and %d sessions in %s",
		result.WorkshopsSynced, result.SessionsSynced, result.Duration.Round(time.Millisecond))
	if result.Failed > 0 {
		message += fmt.Sprintf(" (%d failed)", result.Failed)
	}

	e.logger.Info("full sync completed", map[string]any{
		"workshops": result.WorkshopsSynced,
		"sessions":  result.SessionsSynced,
		"failed":    result.Failed,
	})
	if statusErr := e.store.SetSyncStatus(settingsstore.SyncStatusSuccess, message, result.WorkshopsSynced, result.SessionsSynced); statusErr != nil {
		e.logger.Error("failed to record sync status", map[string]any{"error": statusErr.Error()})
	}
	return result, nil
}

func (e *Engine) syncAll(ctx context.Context) (*Result, error) {
	connector, err := e.connect()
	if err != nil {
		return nil, err
	}
	defer closeConnector(connector)

	raw, err := connector.ListWorkshops(ctx, fetchLimit, 0)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFetch
	}

	result := &Result{}
	for _, rawWorkshop := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		number := strings.TrimSpace(rawWorkshop.WorkshopNumber)
		if number == "" {
			e.logger.Warning("skipping workshop without a number", map[string]any{"title": rawWorkshop.Title})
			result.Failed++
			continue
		}

		sessions, sessErr := connector.ListSessions(ctx, number)
		if sessErr != nil {
			// Keep the previously cached sessions rather than losing
			// them to a transient fetch failure.
			e.logger.Warning("session fetch failed, keeping cached sessions", map[string]any{
				"workshop": number,
				"error":    sessErr.Error(),
			})
			if err := e.repo.Upsert(convertWorkshop(rawWorkshop)); err != nil {
				e.logger.Error("workshop upsert failed", map[string]any{"workshop": number, "error": err.Error()})
				result.Failed++
				continue
			}
			result.WorkshopsSynced++
			continue
		}

		if err := e.repo.UpsertWithSessions(convertWorkshop(rawWorkshop), convertSessions(sessions)); err != nil {
			e.logger.Error("workshop upsert failed", map[string]any{"workshop": number, "error": err.Error()})
			result.Failed++
			continue
		}
		result.WorkshopsSynced++
		result.SessionsSynced += len(sessions)
	}

	if result.WorkshopsSynced == 0 {
		return nil, fmt.Errorf("all %d workshops failed to sync", result.Failed)
	}
	return result, nil
}

// SyncOne refreshes a single workshop record from the source. Sessions
// are intentionally not refetched here; only a full run replaces the
// session sets.
func (e *Engine) SyncOne(ctx context.Context, workshopNumber string) (*entities.Workshop, error) {
	connector, err := e.connect()
	if err != nil {
		return nil, err
	}
	defer closeConnector(connector)

	raw, err := connector.GetWorkshopDetail(ctx, workshopNumber)
	if err != nil {
		if !errors.Is(err, filemaker.ErrWorkshopNotFound) {
			e.logger.Error("single workshop sync failed", map[string]any{
				"workshop": workshopNumber,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	workshop := convertWorkshop(*raw)
	if err := e.repo.Upsert(workshop); err != nil {
		e.logger.Error("workshop upsert failed", map[string]any{"workshop": workshopNumber, "error": err.Error()})
		return nil, err
	}

	e.logger.Debug("single workshop synced", map[string]any{"workshop": workshopNumber})
	return workshop, nil
}

// PruneResult summarizes one cleanup pass.
type PruneResult struct {
	WorkshopsPruned  int64 `json:"workshops_pruned"`
	SessionsPruned   int64 `json:"sessions_pruned"`
	LogEntriesPruned int64 `json:"log_entries_pruned"`
}

// Prune removes workshops that started before the retention window,
// their orphaned sessions, and stale log entries.
func (e *Engine) Prune(workshopRetention, logRetention time.Duration) (*PruneResult, error) {
	result := &PruneResult{}

	workshopsPruned, sessionsPruned, err := e.repo.PruneOlderThan(time.Now().Add(-workshopRetention))
	if err != nil {
		e.logger.Error("cache prune failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	result.WorkshopsPruned = workshopsPruned
	result.SessionsPruned = sessionsPruned

	logEntriesPruned, err := e.logger.DeleteOldEntries(logRetention)
	if err != nil {
		e.logger.Error("log prune failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	result.LogEntriesPruned = logEntriesPruned

	e.logger.Info("prune completed", map[string]any{
		"workshops":   result.WorkshopsPruned,
		"sessions":    result.SessionsPruned,
		"log_entries": result.LogEntriesPruned,
	})
	return result, nil
}

func closeConnector(c filemaker.Connector) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}

func convertWorkshop(raw filemaker.RawWorkshop) *entities.Workshop {
	return &entities.Workshop{
		WorkshopNumber:           strings.TrimSpace(raw.WorkshopNumber),
		Title:                    strings.TrimSpace(raw.Title),
		DescriptionFull:          raw.DescriptionFull,
		StartDate:                normalize.Date(raw.DateStart),
		StartTime:                normalize.Clock(raw.FirstSessionTime),
		EndTime:                  normalize.Clock(raw.FirstSessionEndTime),
		WorkshopType:             strings.TrimSpace(raw.WorkshopType),
		MaxRegistrationCount:     normalize.Int(raw.MaxRegistrations),
		CurrentRegistrationCount: normalize.Int(raw.RegistrationCount),
		CostStudent:              normalize.Float(raw.CostStudent),
		CostEmployee:             normalize.Float(raw.CostEmployee),
		WebRate:                  normalize.Float(raw.WebRate),
		Presenters:               strings.TrimSpace(raw.Presenters),
		Location:                 strings.TrimSpace(raw.Location),
		Status:                   strings.TrimSpace(raw.Status),
		Approved:                 strings.TrimSpace(raw.Approved),
		IncludeWeb:               raw.IncludeWeb,
		RegistrationDueDate:      normalize.Date(raw.RegistrationDueDate),
		LastSynced:               time.Now(),
	}
}

func convertSessions(raw []filemaker.RawSession) []entities.Session {
	sessions := make([]entities.Session, 0, len(raw))
	for _, r := range raw {
		sessions = append(sessions, entities.Session{
			SessionDate:          normalize.Date(r.DateStart),
			BeginTime:            normalize.Clock(r.BeginTime),
			EndTime:              normalize.Clock(r.EndTime),
			LocationBuildingRoom: strings.TrimSpace(r.BuildingRoom),
			LocationFull:         strings.TrimSpace(r.LocationFull),
			LastSynced:           time.Now(),
		})
	}
	return sessions
}
