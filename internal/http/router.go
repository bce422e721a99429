package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roe24/workshop-bridge/internal/database"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/registration"
	"github.com/roe24/workshop-bridge/internal/scheduler"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
	"github.com/roe24/workshop-bridge/internal/tasks"
)

// RouterConfig carries all dependencies for the HTTP router.
type RouterConfig struct {
	Database      *database.Database
	WorkshopsRepo *workshops.Repository
	SettingsStore *settingsstore.SettingsStore
	Logger        *logging.Service
	SyncEngine    *syncengine.Engine
	Scheduler     *scheduler.WorkshopSyncScheduler
	Registration  *registration.Handler
	TaskClient    *tasks.Client

	// AdminToken guards /api/admin when non-empty.
	AdminToken string
	Version    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	workshopsController := NewWorkshopsController(cfg.WorkshopsRepo, cfg.SettingsStore, cfg.SyncEngine)
	registrationsController := NewRegistrationsController(cfg.Registration, cfg.TaskClient)
	adminController := NewAdminController(cfg.SyncEngine, cfg.Scheduler, cfg.SettingsStore, cfg.Logger, cfg.WorkshopsRepo)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Public catalog endpoints
	router.GET("/api/workshops", workshopsController.ListWorkshops)
	router.GET("/api/workshops/categories", workshopsController.GetCategories)
	router.GET("/api/workshops/:number", workshopsController.GetWorkshop)
	router.GET("/api/workshops/:number/availability", workshopsController.GetAvailability)

	// Registration endpoint
	router.POST("/api/registrations", registrationsController.Create)

	// Admin endpoints
	admin := router.Group("/api/admin")
	if cfg.AdminToken != "" {
		admin.Use(adminTokenMiddleware(cfg.AdminToken))
	}
	admin.POST("/sync", adminController.TriggerSync)
	admin.POST("/sync/:number", adminController.SyncWorkshop)
	admin.POST("/test-connection", adminController.TestConnection)
	admin.GET("/errors", adminController.GetErrors)
	admin.DELETE("/errors", adminController.ClearErrors)
	admin.GET("/stats", adminController.GetStats)
	admin.GET("/settings", adminController.GetSettings)
	admin.PUT("/settings", adminController.UpdateSettings)
	admin.GET("/allowlist", adminController.GetAllowlist)
	admin.POST("/allowlist", adminController.UpdateAllowlist)
	admin.GET("/remote-logs", adminController.GetRemoteLogs)

	return router
}

// adminTokenMiddleware requires the X-Admin-Token header to match.
func adminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid admin token"})
			return
		}
		c.Next()
	}
}
