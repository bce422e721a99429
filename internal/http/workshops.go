package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// WorkshopsController serves the read side of the workshop cache, plus
// the one read that must hit the source live: seat availability.
type WorkshopsController struct {
	repo      *workshops.Repository
	store     *settingsstore.SettingsStore
	refresher workshopRefresher
}

// workshopRefresher pulls one workshop from the source into the cache.
type workshopRefresher interface {
	SyncOne(ctx context.Context, workshopNumber string) (*entities.Workshop, error)
}

// NewWorkshopsController creates the controller. refresher may be nil;
// cache misses are then final.
func NewWorkshopsController(repo *workshops.Repository, store *settingsstore.SettingsStore, refresher workshopRefresher) *WorkshopsController {
	return &WorkshopsController{repo: repo, store: store, refresher: refresher}
}

// WorkshopDetail is a workshop with its session occurrences.
type WorkshopDetail struct {
	entities.Workshop
	Sessions []entities.Session `json:"sessions"`
}

// ListWorkshops returns cached workshops filtered by query parameters:
// search, category, upcoming, active, limit, offset.
func (w *WorkshopsController) ListWorkshops(c *gin.Context) {
	filters := workshops.QueryFilters{
		Search:       c.Query("search"),
		Category:     c.Query("category"),
		UpcomingOnly: c.DefaultQuery("upcoming", "true") != "false",
		ActiveOnly:   c.DefaultQuery("active", "true") != "false",
	}

	filters.Limit = parsePositiveInt(c.Query("limit"), defaultPageSize)
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	filters.Offset = parsePositiveInt(c.Query("offset"), 0)

	total, err := w.repo.Count(filters)
	if err != nil {
		respondInternalError(c, err, "count workshops")
		return
	}

	rows, err := w.repo.Query(filters)
	if err != nil {
		respondInternalError(c, err, "list workshops")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    rows,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		HasMore: int64(filters.Offset+len(rows)) < total,
	})
}

// GetCategories returns the distinct workshop types for filtering.
func (w *WorkshopsController) GetCategories(c *gin.Context) {
	categories, err := w.repo.Categories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetWorkshop returns one cached workshop with its sessions. A cache
// miss triggers one lazy fetch from the source before giving up, so a
// workshop published between syncs is still reachable by direct link.
func (w *WorkshopsController) GetWorkshop(c *gin.Context) {
	number := c.Param("number")

	workshop, err := w.repo.GetByNumber(number)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondInternalError(c, err, "get workshop")
			return
		}
		if w.refresher == nil {
			respondNotFound(c, "workshop")
			return
		}
		workshop, err = w.refresher.SyncOne(c.Request.Context(), number)
		if err != nil {
			respondNotFound(c, "workshop")
			return
		}
	}

	sessions, err := w.repo.SessionsFor(number)
	if err != nil {
		respondInternalError(c, err, "get workshop sessions")
		return
	}

	c.JSON(http.StatusOK, WorkshopDetail{Workshop: *workshop, Sessions: sessions})
}

// GetAvailability returns a live seat count from the source. The cache
// is deliberately bypassed: stale counts must never gate a registration.
func (w *WorkshopsController) GetAvailability(c *gin.Context) {
	number := c.Param("number")

	connector, err := w.store.BuildConnector()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		return
	}
	defer closeConnector(connector)

	availability, err := connector.CheckAvailability(c.Request.Context(), number)
	if err != nil {
		switch {
		case errors.Is(err, filemaker.ErrWorkshopNotFound):
			respondNotFound(c, "workshop")
		case errors.Is(err, filemaker.ErrUnsupportedOperation):
			respondError(c, http.StatusNotImplemented, "availability check not supported by the active connector")
		default:
			respondError(c, http.StatusBadGateway, "source unavailable")
		}
		return
	}

	c.JSON(http.StatusOK, availability)
}

func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
