package ai

import "errors"

var (
	ErrEmptyInput       = errors.New("empty input text")
	ErrEmptyEmbedding   = errors.New("no embedding returned")
	ErrInvalidEmbedding = errors.New("embedding has zero or non-finite norm")
	ErrEmptyResponse    = errors.New("no text in generation response")
	ErrCircuitOpen      = errors.New("gemini circuit breaker open")
)

// EmbeddingError is returned when the remote embedding call fails, times out
// or returns a vector that cannot be normalized.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return "embedding " + e.Op + ": " + e.Err.Error()
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError is returned when the remote synthesis call fails.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return "generation " + e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }
