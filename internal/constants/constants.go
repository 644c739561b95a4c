package constants

import "time"

const (
	QueueTickInterval     = 3 * time.Second
	ProvisionPollInterval = 5 * time.Second
	ProvisionTimeout      = 120 * time.Second
	ShutdownPollInterval  = 2 * time.Second
	ShutdownTimeout       = 15 * time.Second
)

const (
	ProviderAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	AppShutdownTimeout = 5 * time.Second
)

const (
	// Every match gets its own machine, so all game-server builds listen on
	// the same port.
	GameServerPort = 27015
)
