package errorlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.ErrorLogEntry{})
	require.NoError(t, err)

	return db
}

func TestRepository_Record(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	err := repo.Record(&entities.ErrorLogEntry{
		Level:   entities.LogLevelError,
		Message: "sync failed",
		Context: `{"action":"sync_all"}`,
	})
	require.NoError(t, err)

	entries, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.LogLevelError, entries[0].Level)
	assert.Equal(t, "sync failed", entries[0].Message)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRepository_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(&entities.ErrorLogEntry{
			Level:     entities.LogLevelInfo,
			Message:   fmt.Sprintf("entry %d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		entries, err := repo.ListRecent(3)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "entry 4", entries[0].Message)
		assert.Equal(t, "entry 2", entries[2].Message)
	})

	t.Run("default limit applied", func(t *testing.T) {
		entries, err := repo.ListRecent(0)
		require.NoError(t, err)
		assert.Len(t, entries, 5)
	})
}

func TestRepository_ListByLevel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Record(&entities.ErrorLogEntry{Level: entities.LogLevelError, Message: "boom"}))
	require.NoError(t, repo.Record(&entities.ErrorLogEntry{Level: entities.LogLevelWarning, Message: "odd"}))
	require.NoError(t, repo.Record(&entities.ErrorLogEntry{Level: entities.LogLevelError, Message: "boom again"}))

	entries, err := repo.ListByLevel(entities.LogLevelError, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRepository_CountSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Record(&entities.ErrorLogEntry{
		Level:     entities.LogLevelError,
		Message:   "old",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.Record(&entities.ErrorLogEntry{
		Level:   entities.LogLevelError,
		Message: "fresh",
	}))

	count, err := repo.CountSince(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_ClearAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Record(&entities.ErrorLogEntry{Level: entities.LogLevelError, Message: "a"}))
	require.NoError(t, repo.Record(&entities.ErrorLogEntry{Level: entities.LogLevelInfo, Message: "b"}))

	deleted, err := repo.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	entries, err := repo.ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Record(&entities.ErrorLogEntry{
		Level:     entities.LogLevelError,
		Message:   "kept",
		CreatedAt: time.Now().AddDate(0, 0, -29),
	}))
	require.NoError(t, repo.Record(&entities.ErrorLogEntry{
		Level:     entities.LogLevelError,
		Message:   "removed",
		CreatedAt: time.Now().AddDate(0, 0, -31),
	}))

	deleted, err := repo.DeleteOlderThan(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}
