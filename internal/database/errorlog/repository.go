// Package errorlog provides database operations for the operational
// error/audit log.
package errorlog

import (
	"time"

	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/entities"
)

// Repository handles all error log database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new error log repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record appends one entry to the log.
func (r *Repository) Record(entry *entities.ErrorLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

// ListRecent retrieves the newest entries, most recent first.
func (r *Repository) ListRecent(limit int) ([]entities.ErrorLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []entities.ErrorLogEntry
	err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// ListByLevel retrieves the newest entries of one severity level.
func (r *Repository) ListByLevel(level entities.LogLevel, limit int) ([]entities.ErrorLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []entities.ErrorLogEntry
	err := r.db.Where("level = ?", level).
		Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// CountSince returns the number of entries recorded after the given time.
func (r *Repository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.ErrorLogEntry{}).
		Where("created_at > ?", since).Count(&count).Error
	return count, err
}

// ClearAll removes every entry and returns how many were deleted.
func (r *Repository) ClearAll() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&entities.ErrorLogEntry{})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan removes entries recorded before the cutoff. Returns
// the number of deleted entries.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.ErrorLogEntry{})
	return result.RowsAffected, result.Error
}
