package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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
	"github.com/roe24/workshop-bridge/internal/registration"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

func setupRegistrationsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.Workshop{}, &entities.Session{},
		&entities.ErrorLogEntry{}, &entities.Setting{},
	))

	repo := workshops.NewRepository(db)
	startDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	require.NoError(t, repo.Upsert(&entities.Workshop{
		WorkshopNumber: "WS1",
		Title:          "Robotics",
		StartDate:      &startDate,
		Status:         entities.WorkshopStatusActive,
		Approved:       entities.WorkshopApprovedYes,
	}))

	store := settingsstore.New(settings.NewRepository(db))
	logger := logging.NewService(errorlog.NewRepository(db))
	handler := registration.NewHandler(repo, store, logger, nil)

	controller := NewRegistrationsController(handler, nil)
	router := gin.New()
	router.POST("/api/registrations", controller.Create)
	return router
}

func postRegistration(router *gin.Engine, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/registrations", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRegistrationsController_Create(t *testing.T) {
	t.Run("missing workshop number", func(t *testing.T) {
		router := setupRegistrationsRouter(t)

		w := postRegistration(router, map[string]string{
			"first_name": "Pat",
			"last_name":  "Lee",
			"email":      "pat@example.edu",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failures reported per field", func(t *testing.T) {
		router := setupRegistrationsRouter(t)

		w := postRegistration(router, map[string]string{
			"workshop_number": "WS1",
			"first_name":      "Pat",
			"email":           "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "invalid_registration", response.Code)

		details, ok := response.Details.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "last_name")
		assert.Contains(t, details, "email")
	})

	t.Run("unknown workshop", func(t *testing.T) {
		router := setupRegistrationsRouter(t)

		w := postRegistration(router, map[string]string{
			"workshop_number": "WS404",
			"first_name":      "Pat",
			"last_name":       "Lee",
			"email":           "pat@example.edu",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unconfigured connector", func(t *testing.T) {
		router := setupRegistrationsRouter(t)

		w := postRegistration(router, map[string]string{
			"workshop_number": "WS1",
			"first_name":      "Pat",
			"last_name":       "Lee",
			"email":           "pat@example.edu",
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
