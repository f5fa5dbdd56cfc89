package lock

import (
	"context"
	"time"
)

// Lease states stored as the lock value. WAITING covers the window before the
// external call starts (short TTL); RUNNING covers the call itself (longer TTL).
// If the worker crashes the lease self-expires and a later request can retry.
const (
	StateWaiting = "WAITING"
	StateRunning = "RUNNING"
)

// Lock is a TTL-bound exclusive marker. Acquire must be atomic set-if-absent.
type Lock interface {
	// Acquire sets key to state with the given TTL if the key does not exist.
	// Returns false when the key is already held.
	Acquire(ctx context.Context, key, state string, ttl time.Duration) (bool, error)
	// Extend overwrites the state and renews the TTL of a held lease.
	Extend(ctx context.Context, key, state string, ttl time.Duration) error
	// Release deletes the lease. Releasing an absent lease is not an error.
	Release(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
