// Package logging provides the operational event log. Logging never
// fails the caller: a write that cannot reach the database falls back
// to stderr and is otherwise dropped.
package logging

import (
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/entities"
)

// Service writes leveled events to the error log table.
type Service struct {
	repo  *errorlog.Repository
	debug atomic.Bool
}

// NewService creates a new logging service.
func NewService(repo *errorlog.Repository) *Service {
	return &Service{repo: repo}
}

// SetDebug toggles whether Debug events are persisted.
func (s *Service) SetDebug(enabled bool) {
	s.debug.Store(enabled)
}

// Error records a failure event.
func (s *Service) Error(message string, context map[string]any) {
	s.record(entities.LogLevelError, message, context)
}

// Warning records a recoverable anomaly.
func (s *Service) Warning(message string, context map[string]any) {
	s.record(entities.LogLevelWarning, message, context)
}

// Info records a routine operational event.
func (s *Service) Info(message string, context map[string]any) {
	s.record(entities.LogLevelInfo, message, context)
}

// Debug records a diagnostic event. Dropped unless debug is enabled.
func (s *Service) Debug(message string, context map[string]any) {
	if !s.debug.Load() {
		return
	}
	s.record(entities.LogLevelDebug, message, context)
}

// RecordAsync persists an event in the background (non-blocking).
func (s *Service) RecordAsync(level entities.LogLevel, message string, context map[string]any) {
	go s.record(level, message, context)
}

func (s *Service) record(level entities.LogLevel, message string, context map[string]any) {
	entry := &entities.ErrorLogEntry{
		Level:     level,
		Message:   truncate(message, 2000),
		CreatedAt: time.Now(),
	}

	if len(context) > 0 {
		if encoded, err := json.Marshal(context); err == nil {
			entry.Context = string(encoded)
		}
	}

	if err := s.repo.Record(entry); err != nil {
		log.Printf("[%s] %s (log write failed: %v)", level, message, err)
	}
}

// Recent returns the newest persisted events.
func (s *Service) Recent(limit int) ([]entities.ErrorLogEntry, error) {
	return s.repo.ListRecent(limit)
}

// RecentByLevel returns the newest persisted events of one level.
func (s *Service) RecentByLevel(level entities.LogLevel, limit int) ([]entities.ErrorLogEntry, error) {
	return s.repo.ListByLevel(level, limit)
}

// CountSince reports how many entries were written in the given window,
// for dashboard health checks.
func (s *Service) CountSince(window time.Duration) (int64, error) {
	return s.repo.CountSince(time.Now().Add(-window))
}

// Clear removes every persisted event and returns how many were removed.
func (s *Service) Clear() (int64, error) {
	return s.repo.ClearAll()
}

// DeleteOldEntries removes events older than the retention window.
func (s *Service) DeleteOldEntries(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOlderThan(cutoff)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
