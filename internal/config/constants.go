package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the workshop cache database
	DefaultDatabasePath = "./workshop-bridge.db"
)
