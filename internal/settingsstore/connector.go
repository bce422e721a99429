package settingsstore

import (
	"fmt"

	"github.com/roe24/workshop-bridge/internal/filemaker"
)

// BuildConnector constructs the transport selected by the current
// settings. A fresh connector is built per sync run so credential
// changes take effect without a restart.
//
// The returned connector may hold resources; callers should check for
// io.Closer when done.
func (s *SettingsStore) BuildConnector() (filemaker.Connector, error) {
	cfg := s.GetConnectorConfig()

	switch cfg.Mode {
	case filemaker.ConnectorModeODBC:
		return filemaker.NewODBCConnector(cfg.ODBCDSN, cfg.ODBCUsername, cfg.ODBCPassword, cfg.WebInclude)
	case filemaker.ConnectorModeAPI:
		return filemaker.NewAPIConnector(cfg.APIURL, cfg.APIKey, cfg.APIAdminKey)
	default:
		return nil, fmt.Errorf("unknown connector mode %q: %w", cfg.Mode, filemaker.ErrNotConfigured)
	}
}
