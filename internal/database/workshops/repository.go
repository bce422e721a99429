// Package workshops provides cache-store operations for synced workshop
// and session records.
//
// The cache is keyed on the workshop number. Upserts overwrite every
// synced field from the latest fetch; sessions are replaced wholesale
// per workshop rather than merged.
package workshops

import (
	"time"

	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/entities"
)

// QueryFilters narrows the read-side workshop listing.
type QueryFilters struct {
	Search       string // matches title, description, or presenters
	Category     string // matches workshop_type
	UpcomingOnly bool
	ActiveOnly   bool
	OrderBy      string // defaults to "start_date ASC, start_time ASC"
	Limit        int
	Offset       int
}

// SyncStats summarizes the cache for dashboards.
type SyncStats struct {
	TotalWorkshops    int64 `json:"total_workshops"`
	ActiveWorkshops   int64 `json:"active_workshops"`
	UpcomingWorkshops int64 `json:"upcoming_workshops"`
	TotalSessions     int64 `json:"total_sessions"`
}

// Repository handles all workshop cache database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new workshop cache repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or updates a workshop keyed on its workshop number.
// Every field is overwritten from the incoming record.
func (r *Repository) Upsert(w *entities.Workshop) error {
	return r.upsert(r.db, w)
}

func (r *Repository) upsert(tx *gorm.DB, w *entities.Workshop) error {
	var existing entities.Workshop
	result := tx.Where("workshop_number = ?", w.WorkshopNumber).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		return tx.Create(w).Error
	} else if result.Error != nil {
		return result.Error
	}

	w.ID = existing.ID
	return tx.Save(w).Error
}

// ReplaceSessions deletes all cached sessions for a workshop and inserts
// the given set, inside one transaction so readers never observe the
// intermediate empty state.
func (r *Repository) ReplaceSessions(workshopNumber string, sessions []entities.Session) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return r.replaceSessions(tx, workshopNumber, sessions)
	})
}

func (r *Repository) replaceSessions(tx *gorm.DB, workshopNumber string, sessions []entities.Session) error {
	if err := tx.Where("workshop_number = ?", workshopNumber).Delete(&entities.Session{}).Error; err != nil {
		return err
	}
	for i := range sessions {
		sessions[i].ID = 0
		sessions[i].WorkshopNumber = workshopNumber
		if err := tx.Create(&sessions[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpsertWithSessions applies a workshop upsert and its session
// replacement as one transaction. This is the unit of atomicity for a
// sync run: either the workshop and its current session set land
// together, or neither does.
func (r *Repository) UpsertWithSessions(w *entities.Workshop, sessions []entities.Session) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.upsert(tx, w); err != nil {
			return err
		}
		return r.replaceSessions(tx, w.WorkshopNumber, sessions)
	})
}

// GetByNumber retrieves a cached workshop by its workshop number.
func (r *Repository) GetByNumber(workshopNumber string) (*entities.Workshop, error) {
	var workshop entities.Workshop
	err := r.db.Where("workshop_number = ?", workshopNumber).First(&workshop).Error
	if err != nil {
		return nil, err
	}
	return &workshop, nil
}

// SessionsFor returns the cached sessions of a workshop ordered by date
// and begin time.
func (r *Repository) SessionsFor(workshopNumber string) ([]entities.Session, error) {
	var sessions []entities.Session
	err := r.db.Where("workshop_number = ?", workshopNumber).
		Order("session_date ASC, begin_time ASC").Find(&sessions).Error
	return sessions, err
}

// Query returns workshops matching the filters.
func (r *Repository) Query(filters QueryFilters) ([]entities.Workshop, error) {
	var rows []entities.Workshop

	query := r.applyFilters(r.db.Model(&entities.Workshop{}), filters)

	orderBy := filters.OrderBy
	if orderBy == "" {
		orderBy = "start_date ASC, start_time ASC"
	}
	query = query.Order(orderBy)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	err := query.Find(&rows).Error
	return rows, err
}

// Count returns the total number of workshops matching the filters,
// ignoring limit and offset, for pagination.
func (r *Repository) Count(filters QueryFilters) (int64, error) {
	var total int64
	err := r.applyFilters(r.db.Model(&entities.Workshop{}), filters).Count(&total).Error
	return total, err
}

func (r *Repository) applyFilters(query *gorm.DB, filters QueryFilters) *gorm.DB {
	if filters.ActiveOnly {
		query = query.Where("status = ? AND approved = ?", entities.WorkshopStatusActive, entities.WorkshopApprovedYes)
	}
	if filters.UpcomingOnly {
		today := time.Now().Format("2006-01-02")
		query = query.Where("start_date >= ?", today)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(description_full) LIKE LOWER(?) OR LOWER(presenters) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}
	if filters.Category != "" {
		query = query.Where("workshop_type LIKE ?", "%"+filters.Category+"%")
	}
	return query
}

// Categories returns the distinct workshop types of active, approved
// workshops for the filter dropdown.
func (r *Repository) Categories() ([]string, error) {
	var categories []string
	err := r.db.Model(&entities.Workshop{}).
		Where("status = ? AND approved = ?", entities.WorkshopStatusActive, entities.WorkshopApprovedYes).
		Where("workshop_type IS NOT NULL AND workshop_type != ''").
		Distinct("workshop_type").
		Order("workshop_type ASC").
		Pluck("workshop_type", &categories).Error
	return categories, err
}

// Stats returns cache totals for the admin dashboard.
func (r *Repository) Stats() (SyncStats, error) {
	var stats SyncStats

	if err := r.db.Model(&entities.Workshop{}).Count(&stats.TotalWorkshops).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&entities.Workshop{}).
		Where("status = ?", entities.WorkshopStatusActive).
		Count(&stats.ActiveWorkshops).Error; err != nil {
		return stats, err
	}
	today := time.Now().Format("2006-01-02")
	if err := r.db.Model(&entities.Workshop{}).
		Where("start_date >= ?", today).
		Count(&stats.UpcomingWorkshops).Error; err != nil {
		return stats, err
	}
	err := r.db.Model(&entities.Session{}).Count(&stats.TotalSessions).Error
	return stats, err
}

// PruneOlderThan removes workshops whose start date is before the cutoff,
// then any sessions whose parent workshop is no longer cached. Returns
// the number of workshops and sessions removed.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int64, int64, error) {
	cutoffDate := cutoff.Format("2006-01-02")

	workshopsResult := r.db.
		Where("start_date IS NOT NULL AND start_date < ?", cutoffDate).
		Delete(&entities.Workshop{})
	if workshopsResult.Error != nil {
		return 0, 0, workshopsResult.Error
	}

	sessionsResult := r.db.
		Where("workshop_number NOT IN (?)",
			r.db.Model(&entities.Workshop{}).Select("workshop_number")).
		Delete(&entities.Session{})
	if sessionsResult.Error != nil {
		return workshopsResult.RowsAffected, 0, sessionsResult.Error
	}

	return workshopsResult.RowsAffected, sessionsResult.RowsAffected, nil
}
