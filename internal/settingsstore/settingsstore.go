// Package settingsstore resolves runtime settings with the priority
// database > environment > default. Connector credentials, the sync
// schedule, and sync outcome bookkeeping all live here so they can be
// changed through the admin API without a restart.
package settingsstore

import (
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/roe24/workshop-bridge/internal/database/settings"
	"github.com/roe24/workshop-bridge/internal/entities"
)

type SettingsStore struct {
	repo *settings.Repository
}

func New(repo *settings.Repository) *SettingsStore {
	return &SettingsStore{repo: repo}
}

// resolve returns the value of key with database > environment > default
// priority, alongside which layer supplied it.
func (s *SettingsStore) resolve(key, envVar, fallback string) (value, source string) {
	setting, err := s.repo.GetSetting(key)
	if err == nil && setting.Value != "" {
		return setting.Value, "database"
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal, "environment"
	}
	return fallback, "default"
}

func (s *SettingsStore) Set(key, value string) error {
	return s.repo.SetSetting(key, value)
}

// Clear removes a database override, reverting the key to env/default.
func (s *SettingsStore) Clear(key string) error {
	err := s.repo.DeleteSetting(key)
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	return err
}

// GetConnectorMode returns "api" or "odbc".
func (s *SettingsStore) GetConnectorMode() string {
	mode, _ := s.resolve(entities.SettingKeyConnectorMode, "CONNECTOR_MODE", "api")
	return mode
}

func (s *SettingsStore) GetAPIURL() string {
	v, _ := s.resolve(entities.SettingKeyAPIURL, "BRIDGE_API_URL", "")
	return v
}

func (s *SettingsStore) GetAPIKey() string {
	v, _ := s.resolve(entities.SettingKeyAPIKey, "BRIDGE_API_KEY", "")
	return v
}

func (s *SettingsStore) GetAPIAdminKey() string {
	v, _ := s.resolve(entities.SettingKeyAPIAdminKey, "BRIDGE_API_ADMIN_KEY", "")
	return v
}

func (s *SettingsStore) GetODBCDSN() string {
	v, _ := s.resolve(entities.SettingKeyODBCDSN, "FILEMAKER_ODBC_DSN", "")
	return v
}

func (s *SettingsStore) GetODBCUsername() string {
	v, _ := s.resolve(entities.SettingKeyODBCUsername, "FILEMAKER_ODBC_USERNAME", "")
	return v
}

func (s *SettingsStore) GetODBCPassword() string {
	v, _ := s.resolve(entities.SettingKeyODBCPassword, "FILEMAKER_ODBC_PASSWORD", "")
	return v
}

// GetWebInclude returns the site tag matched against the source's
// IncludeWeb field.
func (s *SettingsStore) GetWebInclude() string {
	v, _ := s.resolve(entities.SettingKeyWebInclude, "WEB_INCLUDE_TAG", "ROE")
	return v
}

func (s *SettingsStore) GetSyncEnabled() bool {
	v, _ := s.resolve(entities.SettingKeySyncEnabled, "SYNC_ENABLED", "true")
	return v == "true" || v == "1"
}

func (s *SettingsStore) SetSyncEnabled(enabled bool) error {
	return s.Set(entities.SettingKeySyncEnabled, strconv.FormatBool(enabled))
}

// GetSyncSchedule returns the cron schedule for the full sync run.
func (s *SettingsStore) GetSyncSchedule() string {
	v, _ := s.resolve(entities.SettingKeySyncSchedule, "SYNC_SCHEDULE", "0 */6 * * *")
	return v
}

func (s *SettingsStore) SetSyncSchedule(schedule string) error {
	return s.Set(entities.SettingKeySyncSchedule, schedule)
}

func (s *SettingsStore) GetDebugMode() bool {
	v, _ := s.resolve(entities.SettingKeyDebugMode, "DEBUG_MODE", "false")
	return v == "true" || v == "1"
}

func (s *SettingsStore) GetCompanyName() string {
	v, _ := s.resolve(entities.SettingKeyCompanyName, "COMPANY_NAME", "Regional Office of Education")
	return v
}

func (s *SettingsStore) GetCompanyEmail() string {
	v, _ := s.resolve(entities.SettingKeyCompanyEmail, "COMPANY_EMAIL", "")
	return v
}

// ConnectorConfig is the effective transport configuration.
type ConnectorConfig struct {
	Mode         string `json:"mode"`
	APIURL       string `json:"api_url"`
	APIKey       string `json:"-"`
	APIAdminKey  string `json:"-"`
	ODBCDSN      string `json:"odbc_dsn"`
	ODBCUsername string `json:"-"`
	ODBCPassword string `json:"-"`
	WebInclude   string `json:"web_include"`
}

// GetConnectorConfig resolves the full transport configuration.
func (s *SettingsStore) GetConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		Mode:         s.GetConnectorMode(),
		APIURL:       s.GetAPIURL(),
		APIKey:       s.GetAPIKey(),
		APIAdminKey:  s.GetAPIAdminKey(),
		ODBCDSN:      s.GetODBCDSN(),
		ODBCUsername: s.GetODBCUsername(),
		ODBCPassword: s.GetODBCPassword(),
		WebInclude:   s.GetWebInclude(),
	}
}

// SyncConfigInfo reports the effective sync configuration with the
// source layer of each field, for the admin settings endpoint. Secrets
// are masked.
type SyncConfigInfo struct {
	ConnectorMode       string `json:"connector_mode"`
	ConnectorModeSource string `json:"connector_mode_source"`

	APIURL    string `json:"api_url"`
	APIKey    string `json:"api_key"` // masked
	HasAPIKey bool   `json:"has_api_key"`

	HasAdminKey bool `json:"has_admin_key"`

	ODBCDSN    string `json:"odbc_dsn"`
	HasODBCDSN bool   `json:"has_odbc_dsn"`

	SyncEnabled    bool   `json:"sync_enabled"`
	Schedule       string `json:"schedule"`
	ScheduleSource string `json:"schedule_source"`
	WebInclude     string `json:"web_include"`
	DebugMode      bool   `json:"debug_mode"`
}

func (s *SettingsStore) GetSyncConfigInfo() SyncConfigInfo {
	mode, modeSource := s.resolve(entities.SettingKeyConnectorMode, "CONNECTOR_MODE", "api")
	schedule, scheduleSource := s.resolve(entities.SettingKeySyncSchedule, "SYNC_SCHEDULE", "0 */6 * * *")
	apiKey := s.GetAPIKey()

	return SyncConfigInfo{
		ConnectorMode:       mode,
		ConnectorModeSource: modeSource,
		APIURL:              s.GetAPIURL(),
		APIKey:              maskSecret(apiKey),
		HasAPIKey:           apiKey != "",
		HasAdminKey:         s.GetAPIAdminKey() != "",
		ODBCDSN:             s.GetODBCDSN(),
		HasODBCDSN:          s.GetODBCDSN() != "",
		SyncEnabled:         s.GetSyncEnabled(),
		Schedule:            schedule,
		ScheduleSource:      scheduleSource,
		WebInclude:          s.GetWebInclude(),
		DebugMode:           s.GetDebugMode(),
	}
}

// Recorded sync outcomes.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncStatus is the recorded outcome of the most recent sync run.
type SyncStatus struct {
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	Status          string     `json:"status,omitempty"` // "success", "failed", "running", ""
	Message         string     `json:"message,omitempty"`
	WorkshopsSynced int        `json:"workshops_synced,omitempty"`
	SessionsSynced  int        `json:"sessions_synced,omitempty"`
}

func (s *SettingsStore) GetSyncStatus() SyncStatus {
	status := SyncStatus{}

	if setting, err := s.repo.GetSetting(entities.SettingKeySyncLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastSyncAt = &ts
		}
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeySyncLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeySyncLastMessage); err == nil {
		status.Message = setting.Value
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeySyncWorkshopsSynced); err == nil && setting.Value != "" {
		if count, err := strconv.Atoi(setting.Value); err == nil {
			status.WorkshopsSynced = count
		}
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeySyncSessionsSynced); err == nil && setting.Value != "" {
		if count, err := strconv.Atoi(setting.Value); err == nil {
			status.SessionsSynced = count
		}
	}

	return status
}

// SetSyncStatus records a sync outcome. The timestamp only advances on
// success: a failed run must not erase when the cache was last actually
// refreshed.
func (s *SettingsStore) SetSyncStatus(status, message string, workshopsSynced, sessionsSynced int) error {
	if status == SyncStatusSuccess {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := s.Set(entities.SettingKeySyncLastAt, now); err != nil {
			return err
		}
	}
	if err := s.Set(entities.SettingKeySyncLastStatus, status); err != nil {
		return err
	}
	if err := s.Set(entities.SettingKeySyncLastMessage, message); err != nil {
		return err
	}
	if err := s.Set(entities.SettingKeySyncWorkshopsSynced, strconv.Itoa(workshopsSynced)); err != nil {
		return err
	}
	return s.Set(entities.SettingKeySyncSessionsSynced, strconv.Itoa(sessionsSynced))
}

// GetSyncLastAt returns the timestamp of the most recent successful
// sync.
func (s *SettingsStore) GetSyncLastAt() *time.Time {
	setting, err := s.repo.GetSetting(entities.SettingKeySyncLastAt)
	if err != nil || setting.Value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return nil
	}
	return &ts
}

// maskSecret returns a masked version of a secret for display.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
