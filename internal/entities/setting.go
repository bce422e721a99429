package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Connector selection and credentials
	SettingKeyConnectorMode = "connector_mode" // "api" or "odbc"
	SettingKeyAPIURL        = "api_url"
	SettingKeyAPIKey        = "api_key"
	SettingKeyAPIAdminKey   = "api_admin_key"
	SettingKeyODBCDSN       = "odbc_dsn"
	SettingKeyODBCUsername  = "odbc_username"
	SettingKeyODBCPassword  = "odbc_password"

	// Sync behaviour
	SettingKeySyncEnabled  = "sync_enabled"
	SettingKeySyncSchedule = "sync_schedule"
	SettingKeyWebInclude   = "web_include"
	SettingKeyDebugMode    = "debug_mode"

	// Sync outcome bookkeeping
	SettingKeySyncLastAt          = "sync_last_at"
	SettingKeySyncLastStatus      = "sync_last_status"
	SettingKeySyncLastMessage     = "sync_last_message"
	SettingKeySyncWorkshopsSynced = "sync_workshops_synced"
	SettingKeySyncSessionsSynced  = "sync_sessions_synced"

	// Company display fields used in confirmation notices
	SettingKeyCompanyName  = "company_name"
	SettingKeyCompanyEmail = "company_email"
)
