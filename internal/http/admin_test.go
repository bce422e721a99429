package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

func setupAdminRouter(t *testing.T) (*gin.Engine, *logging.Service, *settingsstore.SettingsStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.Workshop{}, &entities.Session{},
		&entities.ErrorLogEntry{}, &entities.Setting{},
	))

	repo := workshops.NewRepository(db)
	store := settingsstore.New(settings.NewRepository(db))
	logger := logging.NewService(errorlog.NewRepository(db))

	controller := NewAdminController(nil, nil, store, logger, repo)
	router := gin.New()
	router.GET("/api/admin/stats", controller.GetStats)
	return router, logger, store
}

func TestAdminController_GetStats(t *testing.T) {
	router, logger, store := setupAdminRouter(t)

	logger.Error("sync exploded", nil)
	logger.Warning("slow response", nil)
	require.NoError(t, store.SetSyncStatus(settingsstore.SyncStatusSuccess, "synced 2 workshops", 2, 4))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/admin/stats", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Cache         map[string]any           `json:"cache"`
		LastSync      settingsstore.SyncStatus `json:"last_sync"`
		ErrorsLast24h int64                    `json:"errors_last_24h"`
		SyncActive    bool                     `json:"sync_active"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, int64(2), response.ErrorsLast24h)
	assert.Equal(t, "success", response.LastSync.Status)
	assert.Equal(t, 2, response.LastSync.WorkshopsSynced)
	assert.False(t, response.SyncActive)
	assert.NotNil(t, response.Cache)
}
