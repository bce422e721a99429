package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/errorlog"
	"github.com/roe24/workshop-bridge/internal/entities"
)

func setupService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.ErrorLogEntry{}))

	return NewService(errorlog.NewRepository(db))
}

func TestService_Levels(t *testing.T) {
	service := setupService(t)

	service.Error("sync failed", map[string]any{"workshop": "WS1"})
	service.Warning("slow response", nil)
	service.Info("sync completed", nil)

	entries, err := service.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	errorEntries, err := service.RecentByLevel(entities.LogLevelError, 10)
	require.NoError(t, err)
	require.Len(t, errorEntries, 1)
	assert.Equal(t, "sync failed", errorEntries[0].Message)
	assert.JSONEq(t, `{"workshop":"WS1"}`, errorEntries[0].Context)
}

func TestService_DebugGating(t *testing.T) {
	service := setupService(t)

	service.Debug("dropped", nil)

	entries, err := service.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	service.SetDebug(true)
	service.Debug("kept", nil)

	entries, err = service.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.LogLevelDebug, entries[0].Level)
}

func TestService_NeverPanicsOnClosedDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.ErrorLogEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	service := NewService(errorlog.NewRepository(db))

	assert.NotPanics(t, func() {
		service.Error("write after close", nil)
	})
}

func TestService_Clear(t *testing.T) {
	service := setupService(t)

	service.Error("a", nil)
	service.Info("b", nil)

	deleted, err := service.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestService_TruncatesLongMessages(t *testing.T) {
	service := setupService(t)

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	service.Error(string(long), nil)

	entries, err := service.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Message, 2000)
}
