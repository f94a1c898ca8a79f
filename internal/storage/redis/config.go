package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// PlayerStateTTL bounds how long a dormant player's state is kept
	// after its last write. A room that disappears takes its player
	// records with it once the TTL lapses.
	PlayerStateTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		PlayerStateTTL: 7 * 24 * time.Hour,
	}
}
