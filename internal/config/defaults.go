package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Bot defaults
	DefaultBotName = "Bot"

	// Storage defaults
	DefaultStoragePath            = "messages.db" // Default SQLite database file
	DefaultStorageConnMaxLifetime = 5 * time.Minute

	// Server defaults
	DefaultServerListenAddr      = ":8080"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second

	// Scheduler defaults
	DefaultMaintenanceSchedule = "0 0 4 * * *" // daily at 04:00, seconds field included
)
