package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roe24/workshop-bridge/internal/config"
	"github.com/roe24/workshop-bridge/internal/database"
	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	http_controllers "github.com/roe24/workshop-bridge/internal/http"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/registration"
	"github.com/roe24/workshop-bridge/internal/scheduler"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
	"github.com/roe24/workshop-bridge/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the scheduler and
	// task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Workshop Bridge v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	workshopsRepo := workshops.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)
	errorLogRepo := errorlog.NewRepository(db.DB)

	store := settingsstore.New(settingsRepo)
	logger := logging.NewService(errorLogRepo)
	logger.SetDebug(store.GetDebugMode())

	if store.GetAPIURL() == "" && store.GetODBCDSN() == "" {
		log.Printf("WARNING: No FileMaker connector configured. Set BRIDGE_API_URL/BRIDGE_API_KEY or FILEMAKER_ODBC_DSN, or use the admin settings endpoint.")
	}

	engine := syncengine.NewEngine(workshopsRepo, store, logger)

	workshopRetention := time.Duration(cfg.Retention.WorkshopDays) * 24 * time.Hour
	logRetention := time.Duration(cfg.Retention.LogDays) * 24 * time.Hour
	syncScheduler := scheduler.NewWorkshopSyncScheduler(
		store, engine, logger,
		workshopRetention, logRetention,
		cfg.Sync.PruneSchedule,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewCleanupCacheQueue(engine),
			tasks.NewRefreshWorkshopQueue(engine),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	notifier := registration.NewLogNotifier(logger, store)
	registrationHandler := registration.NewHandler(workshopsRepo, store, logger, notifier)

	routerCfg := http_controllers.RouterConfig{
		Database:      db,
		WorkshopsRepo: workshopsRepo,
		SettingsStore: store,
		Logger:        logger,
		SyncEngine:    engine,
		Scheduler:     syncScheduler,
		Registration:  registrationHandler,
		TaskClient:    taskClient,
		AdminToken:    cfg.HTTP.AdminToken,
		Version:       version,
	}

	router := http_controllers.NewRouter(routerCfg)

	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Printf("WARNING: Failed to start sync scheduler: %v", err)
		logger.Warning("scheduler failed to start", map[string]any{"error": err.Error()})
	}

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		syncScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
