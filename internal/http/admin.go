package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/scheduler"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
)

// AdminController exposes sync control, diagnostics, and settings
// management.
type AdminController struct {
	engine    *syncengine.Engine
	scheduler *scheduler.WorkshopSyncScheduler
	store     *settingsstore.SettingsStore
	logger    *logging.Service
	repo      *workshops.Repository
}

func NewAdminController(
	engine *syncengine.Engine,
	sched *scheduler.WorkshopSyncScheduler,
	store *settingsstore.SettingsStore,
	logger *logging.Service,
	repo *workshops.Repository,
) *AdminController {
	return &AdminController{
		engine:    engine,
		scheduler: sched,
		store:     store,
		logger:    logger,
		repo:      repo,
	}
}

// TriggerSync runs a full sync immediately and reports the result.
func (a *AdminController) TriggerSync(c *gin.Context) {
	result, err := a.engine.SyncAll(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, syncengine.ErrSyncInProgress):
			respondError(c, http.StatusConflict, "a sync is already in progress")
		case errors.Is(err, filemaker.ErrNotConfigured):
			respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		default:
			respondError(c, http.StatusBadGateway, "sync failed: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// SyncWorkshop refreshes one workshop record from the source.
func (a *AdminController) SyncWorkshop(c *gin.Context) {
	number := c.Param("number")

	workshop, err := a.engine.SyncOne(c.Request.Context(), number)
	if err != nil {
		switch {
		case errors.Is(err, filemaker.ErrWorkshopNotFound):
			respondNotFound(c, "workshop")
		case errors.Is(err, filemaker.ErrNotConfigured):
			respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		default:
			respondError(c, http.StatusBadGateway, "sync failed: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, workshop)
}

// TestConnection probes the configured source transport.
func (a *AdminController) TestConnection(c *gin.Context) {
	connector, err := a.store.BuildConnector()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		return
	}
	defer closeConnector(connector)

	result, err := connector.TestConnection(c.Request.Context())
	if result == nil {
		result = &filemaker.TestResult{Success: false}
		if err != nil {
			result.Message = err.Error()
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"connector":        connector.Name(),
		"success":          result.Success,
		"message":          result.Message,
		"response_time_ms": result.ResponseTime.Milliseconds(),
	})
}

// GetErrors returns recent operational log entries, optionally filtered
// by level.
func (a *AdminController) GetErrors(c *gin.Context) {
	limit := parsePositiveInt(c.Query("limit"), 50)

	var entries []entities.ErrorLogEntry
	var err error
	if level := c.Query("level"); level != "" {
		entries, err = a.logger.RecentByLevel(entities.LogLevel(level), limit)
	} else {
		entries, err = a.logger.Recent(limit)
	}
	if err != nil {
		respondInternalError(c, err, "list error log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// ClearErrors removes every operational log entry.
func (a *AdminController) ClearErrors(c *gin.Context) {
	deleted, err := a.logger.Clear()
	if err != nil {
		respondInternalError(c, err, "clear error log")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// GetStats reports cache totals, the last sync outcome, and scheduler
// state.
func (a *AdminController) GetStats(c *gin.Context) {
	stats, err := a.repo.Stats()
	if err != nil {
		respondInternalError(c, err, "cache stats")
		return
	}

	recentErrors, err := a.logger.CountSince(24 * time.Hour)
	if err != nil {
		respondInternalError(c, err, "count recent errors")
		return
	}

	response := gin.H{
		"cache":           stats,
		"last_sync":       a.store.GetSyncStatus(),
		"errors_last_24h": recentErrors,
		"sync_active":     false,
	}
	if a.scheduler != nil {
		response["sync_active"] = a.scheduler.IsSyncing()
		response["scheduler_running"] = a.scheduler.IsRunning()
		if next := a.scheduler.GetNextRunTime(); next != nil {
			response["next_sync_at"] = next.Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetSettings returns the effective configuration with secrets masked.
func (a *AdminController) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.GetSyncConfigInfo())
}

// UpdateSettingsRequest carries settings overrides. Empty fields are
// left untouched; the sentinel "-" clears a database override.
type UpdateSettingsRequest struct {
	ConnectorMode string `json:"connector_mode"`
	APIURL        string `json:"api_url"`
	APIKey        string `json:"api_key"`
	APIAdminKey   string `json:"api_admin_key"`
	ODBCDSN       string `json:"odbc_dsn"`
	ODBCUsername  string `json:"odbc_username"`
	ODBCPassword  string `json:"odbc_password"`
	SyncEnabled   *bool  `json:"sync_enabled"`
	SyncSchedule  string `json:"sync_schedule"`
	WebInclude    string `json:"web_include"`
	DebugMode     *bool  `json:"debug_mode"`
	CompanyName   string `json:"company_name"`
	CompanyEmail  string `json:"company_email"`
}

// UpdateSettings applies overrides to the settings store and restarts
// the scheduler so schedule changes take effect.
func (a *AdminController) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.ConnectorMode != "" &&
		req.ConnectorMode != filemaker.ConnectorModeAPI &&
		req.ConnectorMode != filemaker.ConnectorModeODBC {
		respondBadRequest(c, "connector_mode must be \"api\" or \"odbc\"")
		return
	}
	if req.SyncSchedule != "" && req.SyncSchedule != "-" {
		if err := settingsstore.ValidateCronSchedule(req.SyncSchedule); err != nil {
			respondBadRequest(c, "invalid sync_schedule: "+err.Error())
			return
		}
	}

	updates := map[string]string{
		entities.SettingKeyConnectorMode: req.ConnectorMode,
		entities.SettingKeyAPIURL:        req.APIURL,
		entities.SettingKeyAPIKey:        req.APIKey,
		entities.SettingKeyAPIAdminKey:   req.APIAdminKey,
		entities.SettingKeyODBCDSN:       req.ODBCDSN,
		entities.SettingKeyODBCUsername:  req.ODBCUsername,
		entities.SettingKeyODBCPassword:  req.ODBCPassword,
		entities.SettingKeySyncSchedule:  req.SyncSchedule,
		entities.SettingKeyWebInclude:    req.WebInclude,
		entities.SettingKeyCompanyName:   req.CompanyName,
		entities.SettingKeyCompanyEmail:  req.CompanyEmail,
	}
	for key, value := range updates {
		if value == "" {
			continue
		}
		var err error
		if value == "-" {
			err = a.store.Clear(key)
		} else {
			err = a.store.Set(key, value)
		}
		if err != nil {
			respondInternalError(c, err, "update setting "+key)
			return
		}
	}
	if req.SyncEnabled != nil {
		if err := a.store.SetSyncEnabled(*req.SyncEnabled); err != nil {
			respondInternalError(c, err, "update sync_enabled")
			return
		}
	}
	if req.DebugMode != nil {
		if err := a.store.Set(entities.SettingKeyDebugMode, strconv.FormatBool(*req.DebugMode)); err != nil {
			respondInternalError(c, err, "update debug_mode")
			return
		}
		a.logger.SetDebug(*req.DebugMode)
	}

	if a.scheduler != nil {
		if err := a.scheduler.Reschedule(); err != nil {
			a.logger.Warning("scheduler restart failed after settings change", map[string]any{"error": err.Error()})
		}
	}

	a.logger.Info("settings updated", nil)
	c.JSON(http.StatusOK, a.store.GetSyncConfigInfo())
}

// GetAllowlist lists the bridge's email allowlist.
func (a *AdminController) GetAllowlist(c *gin.Context) {
	a.manageAllowlist(c, filemaker.AllowlistActionList, "")
}

// AllowlistRequest mutates the bridge's email allowlist.
type AllowlistRequest struct {
	Action string `json:"action" binding:"required"`
	Email  string `json:"email"`
}

// UpdateAllowlist adds or removes an allowlist entry on the bridge.
func (a *AdminController) UpdateAllowlist(c *gin.Context) {
	var req AllowlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Action != filemaker.AllowlistActionAdd && req.Action != filemaker.AllowlistActionRemove {
		respondBadRequest(c, "action must be \"add\" or \"remove\"")
		return
	}
	if req.Email == "" {
		respondBadRequest(c, "email is required")
		return
	}
	a.manageAllowlist(c, req.Action, req.Email)
}

func (a *AdminController) manageAllowlist(c *gin.Context, action, email string) {
	connector, err := a.store.BuildConnector()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		return
	}
	defer closeConnector(connector)

	emails, err := connector.ManageAllowlist(c.Request.Context(), action, email)
	if err != nil {
		respondAdminOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// GetRemoteLogs retrieves recent log lines from the API bridge.
func (a *AdminController) GetRemoteLogs(c *gin.Context) {
	connector, err := a.store.BuildConnector()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "source connector is not configured")
		return
	}
	defer closeConnector(connector)

	limit := parsePositiveInt(c.Query("limit"), 100)
	entries, err := connector.FetchRemoteLogs(c.Request.Context(), limit)
	if err != nil {
		respondAdminOpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func respondAdminOpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, filemaker.ErrAdminKeyMissing):
		respondError(c, http.StatusForbidden, "admin API key is not configured")
	case errors.Is(err, filemaker.ErrUnsupportedOperation):
		respondError(c, http.StatusNotImplemented, "operation not supported by the active connector")
	case errors.Is(err, filemaker.ErrInvalidAPIKey):
		respondError(c, http.StatusForbidden, "bridge rejected the configured key")
	default:
		respondError(c, http.StatusBadGateway, "source unavailable")
	}
}
