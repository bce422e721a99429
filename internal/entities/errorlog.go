package entities

import "time"

type LogLevel string

const (
	LogLevelError   LogLevel = "ERROR"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelDebug   LogLevel = "DEBUG"
)

// ErrorLogEntry is one operational event. Entries are append-only and
// pruned after a retention window; Context is an opaque JSON payload.
type ErrorLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     LogLevel  `gorm:"index;size:20;not null" json:"level"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Context   string    `gorm:"type:text" json:"context,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (ErrorLogEntry) TableName() string {
	return "error_log"
}
