package usecase

import "time"

const (
	// DefaultSyncInterval is the period between automatic drain passes.
	DefaultSyncInterval = time.Minute
	// DefaultMaxRetries is the attempt budget before an item is dead-lettered.
	DefaultMaxRetries = 5
	// statusCacheTTL bounds how long a resolved payment status is served from cache.
	statusCacheTTL = 30 * time.Second
)
