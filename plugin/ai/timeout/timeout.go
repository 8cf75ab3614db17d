// Package timeout defines centralized timeout constants for knowledge cache operations.
package timeout

import "time"

const (
	// EmbeddingTimeout is the timeout for embedding generation at write time.
	EmbeddingTimeout = 30 * time.Second

	// LookupTimeout bounds one shared lookup run. The run is detached from
	// the cancellation of the callers waiting on it.
	LookupTimeout = 15 * time.Second
	// VectorTierTimeout bounds the vector tier of one lookup: query embedding
	// plus nearest-neighbour search. Exceeding it degrades the lookup to a miss.
	VectorTierTimeout = 5 * time.Second

	// RedisDialTimeout is the timeout for connecting to the L2 tier.
	RedisDialTimeout = 5 * time.Second

	// RedisIOTimeout is the read and write timeout of L2 commands.
	RedisIOTimeout = 3 * time.Second

	// ShutdownTimeout is the timeout for graceful server shutdown.
	ShutdownTimeout = 10 * time.Second
)
