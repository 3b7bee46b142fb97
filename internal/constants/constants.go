package constants

import "time"

const (
	FetchConnectTimeout = 4 * time.Second
	FetchReadTimeout    = 6 * time.Second
	FetchMaxAttempts    = 3
	FetchBackoffBase    = 250 * time.Millisecond
	HostBridgeTimeout   = 2 * time.Second
	DatabaseTimeout     = 5 * time.Second
	RequestTimeout      = 30 * time.Second
)

const (
	// Rosters below this size are balanced by exhaustive search,
	// larger ones by greedy pairing.
	ExhaustiveRosterLimit = 8
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	SuggestionIDLength = 12
)
