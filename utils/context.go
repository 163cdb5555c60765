package utils

import (
	"context"
	"time"
)

const (
	// ShortTimeout bounds quick Redis round trips (readiness ping, enqueue).
	ShortTimeout = 2 * time.Second

	// ShutdownTimeout is how long in-flight questions get to finish on exit.
	ShutdownTimeout = 30 * time.Second
)

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithShutdownTimeout creates the context used for graceful shutdown.
func WithShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), ShutdownTimeout)
}
