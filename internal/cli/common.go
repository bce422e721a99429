// Package cli implements the command line entry points for running
// syncs and maintenance outside the HTTP server.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/roe24/workshop-bridge/internal/database"
	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/database/workshops"
	"github.com/roe24/workshop-bridge/internal/logging"
	"github.com/roe24/workshop-bridge/internal/settingsstore"
	syncengine "github.com/roe24/workshop-bridge/internal/sync"
)

// environment bundles the pieces every command needs: the cache
// database, the settings store, and the sync engine built on top.
type environment struct {
	db     *database.Database
	store  *settingsstore.SettingsStore
	logger *logging.Service
	engine *syncengine.Engine
	repo   *workshops.Repository
}

func openEnvironment(databasePath string) (*environment, error) {
	absPath, err := filepath.Abs(databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := workshops.NewRepository(db.DB)
	store := settingsstore.New(settings.NewRepository(db.DB))
	logger := logging.NewService(errorlog.NewRepository(db.DB))
	logger.SetDebug(store.GetDebugMode())

	return &environment{
		db:     db,
		store:  store,
		logger: logger,
		engine: syncengine.NewEngine(repo, store, logger),
		repo:   repo,
	}, nil
}

func (e *environment) Close() {
	if err := e.db.Close(); err != nil {
		fmt.Printf("Warning: error closing database: %v\n", err)
	}
}
