package model

import "context"

// Sink persists batches of finished bursts.
type Sink interface {
	// Name identifies the sink in logs and error messages.
	Name() string

	// WriteBursts persists one batch. Implementations must not retain the
	// slice beyond the call.
	WriteBursts(ctx context.Context, bursts []Burst) error

	// Close flushes buffered state and releases the backend connection.
	Close(ctx context.Context) error
}
