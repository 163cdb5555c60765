package ai

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TaskType tells the embedding model how the vector will be used.
type TaskType = genai.TaskType

const (
	TaskRetrievalDocument = genai.TaskTypeRetrievalDocument
	TaskRetrievalQuery    = genai.TaskTypeRetrievalQuery
)

// Embed returns a unit-length embedding for text.
func (gc *GeminiClient) Embed(ctx context.Context, text string, task TaskType) ([]float64, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.embed_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.embeddingModel),
		attribute.Int("gemini.text_length", len(text)),
	)

	if strings.TrimSpace(text) == "" {
		return nil, embeddingFailure(span, "request", ErrEmptyInput)
	}

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	if err := gc.embedLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, embeddingFailure(span, "rate_limit", err)
	}

	result, err := gc.embedBreaker.Execute(func() (interface{}, error) {
		return gc.backend.EmbedContent(ctx, gc.embeddingModel, task, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			err = ErrCircuitOpen
		}
		return nil, embeddingFailure(span, "request", err)
	}

	vec, err := NormalizeVector(result.([]float32))
	if err != nil {
		return nil, embeddingFailure(span, "normalize", err)
	}

	span.SetAttributes(attribute.Int("gemini.dimensions", len(vec)))
	return vec, nil
}

// NormalizeVector divides the vector by its Euclidean norm.
func NormalizeVector(values []float32) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptyEmbedding
	}

	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrInvalidEmbedding
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v) / norm
	}
	return out, nil
}

func embeddingFailure(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &EmbeddingError{Op: op, Err: err}
}
