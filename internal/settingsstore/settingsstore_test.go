package settingsstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/entities"
	"github.com/roe24/workshop-bridge/internal/filemaker"
)

func setupStore(t *testing.T) *SettingsStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Setting{}))

	return New(settings.NewRepository(db))
}

func TestSettingsStore_ResolutionPriority(t *testing.T) {
	store := setupStore(t)

	t.Run("default when nothing set", func(t *testing.T) {
		assert.Equal(t, "api", store.GetConnectorMode())
		assert.Equal(t, "0 */6 * * *", store.GetSyncSchedule())
	})

	t.Run("environment beats default", func(t *testing.T) {
		t.Setenv("SYNC_SCHEDULE", "0 2 * * *")
		assert.Equal(t, "0 2 * * *", store.GetSyncSchedule())
	})

	t.Run("database beats environment", func(t *testing.T) {
		t.Setenv("SYNC_SCHEDULE", "0 2 * * *")
		require.NoError(t, store.SetSyncSchedule("*/30 * * * *"))
		assert.Equal(t, "*/30 * * * *", store.GetSyncSchedule())
	})

	t.Run("clear reverts to environment", func(t *testing.T) {
		t.Setenv("SYNC_SCHEDULE", "0 2 * * *")
		require.NoError(t, store.Clear(entities.SettingKeySyncSchedule))
		assert.Equal(t, "0 2 * * *", store.GetSyncSchedule())
	})
}

func TestSettingsStore_SyncStatus(t *testing.T) {
	store := setupStore(t)

	status := store.GetSyncStatus()
	assert.Nil(t, status.LastSyncAt)
	assert.Empty(t, status.Status)

	require.NoError(t, store.SetSyncStatus("success", "synced 42 workshops", 42, 97))

	status = store.GetSyncStatus()
	require.NotNil(t, status.LastSyncAt)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, "synced 42 workshops", status.Message)
	assert.Equal(t, 42, status.WorkshopsSynced)
	assert.Equal(t, 97, status.SessionsSynced)

	t.Run("failure keeps last success timestamp", func(t *testing.T) {
		lastSuccess := status.LastSyncAt

		require.NoError(t, store.SetSyncStatus(SyncStatusFailed, "source returned no workshops", 0, 0))

		failed := store.GetSyncStatus()
		assert.Equal(t, "failed", failed.Status)
		require.NotNil(t, failed.LastSyncAt)
		assert.True(t, failed.LastSyncAt.Equal(*lastSuccess))
	})

	t.Run("no timestamp before the first success", func(t *testing.T) {
		fresh := setupStore(t)
		require.NoError(t, fresh.SetSyncStatus(SyncStatusFailed, "boom", 0, 0))
		assert.Nil(t, fresh.GetSyncStatus().LastSyncAt)
	})
}

func TestSettingsStore_SyncConfigInfoMasksSecrets(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.Set(entities.SettingKeyAPIKey, "super-secret-key-value"))

	info := store.GetSyncConfigInfo()
	assert.True(t, info.HasAPIKey)
	assert.NotContains(t, info.APIKey, "secret")
	assert.Equal(t, "supe****alue", info.APIKey)
}

func TestSettingsStore_BuildConnector(t *testing.T) {
	store := setupStore(t)

	t.Run("api mode requires url and key", func(t *testing.T) {
		_, err := store.BuildConnector()
		assert.ErrorIs(t, err, filemaker.ErrNotConfigured)
	})

	t.Run("api mode", func(t *testing.T) {
		require.NoError(t, store.Set(entities.SettingKeyAPIURL, "http://bridge.local/api.php"))
		require.NoError(t, store.Set(entities.SettingKeyAPIKey, "key"))

		connector, err := store.BuildConnector()
		require.NoError(t, err)
		assert.Equal(t, filemaker.ConnectorModeAPI, connector.Name())
	})

	t.Run("unknown mode", func(t *testing.T) {
		require.NoError(t, store.Set(entities.SettingKeyConnectorMode, "carrier-pigeon"))

		_, err := store.BuildConnector()
		assert.ErrorIs(t, err, filemaker.ErrNotConfigured)
	})
}
