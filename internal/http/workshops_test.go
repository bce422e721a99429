package http

import (
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

	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
)

func setupWorkshopsRouter(t *testing.T) (*gin.Engine, *workshops.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Workshop{}, &entities.Session{}, &entities.Setting{}))

	repo := workshops.NewRepository(db)
	store := settingsstore.New(settings.NewRepository(db))
	controller := NewWorkshopsController(repo, store, nil)

	router := gin.New()
	router.GET("/api/workshops", controller.ListWorkshops)
	router.GET("/api/workshops/categories", controller.GetCategories)
	router.GET("/api/workshops/:number", controller.GetWorkshop)
	router.GET("/api/workshops/:number/availability", controller.GetAvailability)

	return router, repo
}

func seedWorkshop(t *testing.T, repo *workshops.Repository, number, title, category string) {
	t.Helper()
	startDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	require.NoError(t, repo.Upsert(&entities.Workshop{
		WorkshopNumber: number,
		Title:          title,
		StartDate:      &startDate,
		WorkshopType:   category,
		Status:         entities.WorkshopStatusActive,
		Approved:       entities.WorkshopApprovedYes,
	}))
}

func TestWorkshopsController_ListWorkshops(t *testing.T) {
	router, repo := setupWorkshopsRouter(t)
	seedWorkshop(t, repo, "WS1", "Intro to Robotics", "Technology")
	seedWorkshop(t, repo, "WS2", "Early Literacy", "Education")

	t.Run("lists all", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/workshops", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response PaginatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(2), response.Total)
		assert.False(t, response.HasMore)
	})

	t.Run("search filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/workshops?search=robotics", nil)
		router.ServeHTTP(w, req)

		var response PaginatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(1), response.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/workshops?limit=1", nil)
		router.ServeHTTP(w, req)

		var response PaginatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(2), response.Total)
		assert.Equal(t, 1, response.Limit)
		assert.True(t, response.HasMore)
	})
}

func TestWorkshopsController_GetCategories(t *testing.T) {
	router, repo := setupWorkshopsRouter(t)
	seedWorkshop(t, repo, "WS1", "One", "Technology")
	seedWorkshop(t, repo, "WS2", "Two", "Education")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/workshops/categories", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"Education", "Technology"}, response.Categories)
}

func TestWorkshopsController_GetWorkshop(t *testing.T) {
	router, repo := setupWorkshopsRouter(t)
	seedWorkshop(t, repo, "WS1", "Robotics", "Technology")
	sessionDate := "2099-06-01"
	require.NoError(t, repo.ReplaceSessions("WS1", []entities.Session{
		{SessionDate: &sessionDate},
	}))

	t.Run("found with sessions", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/workshops/WS1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var detail WorkshopDetail
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
		assert.Equal(t, "Robotics", detail.Title)
		assert.Len(t, detail.Sessions, 1)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/workshops/WS404", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWorkshopsController_GetAvailability_Unconfigured(t *testing.T) {
	router, repo := setupWorkshopsRouter(t)
	seedWorkshop(t, repo, "WS1", "Robotics", "Technology")

	// No connector settings at all: the live check cannot run.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/workshops/WS1/availability", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
