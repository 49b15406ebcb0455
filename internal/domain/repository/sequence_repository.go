package repository

import "context"

// SequenceRepository issues values from named counters
type SequenceRepository interface {
	// Next atomically increments the counter for domainKey, creating it when
	// absent, and returns the new value. Concurrent callers queue on the
	// counter row and each receive a distinct value.
	Next(ctx context.Context, domainKey string) (int64, error)
	// Current returns the last value issued for domainKey, or 0 if none.
	Current(ctx context.Context, domainKey string) (int64, error)
}
