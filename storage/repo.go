package storage

import "context"

// Repo is the persistent key-value storage the session store survives restarts with.
// Implementations treat a missing key as absent rather than an error.
type Repo interface {
	// Get returns the value stored under key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
