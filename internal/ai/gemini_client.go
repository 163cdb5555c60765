package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// backend is the raw Gemini surface; GeminiClient layers timeouts, rate
// limiting, circuit breaking and tracing on top of it.
type backend interface {
	EmbedContent(ctx context.Context, model string, task TaskType, text string) ([]float32, error)
	GenerateContent(ctx context.Context, model, systemInstruction, prompt string) (string, int, error)
	Close() error
}

type GeminiClient struct {
	backend         backend
	embeddingModel  string
	generationModel string
	timeout         time.Duration
	embedBreaker    *gobreaker.CircuitBreaker
	generateBreaker *gobreaker.CircuitBreaker
	embedLimiter    *rate.Limiter
	generateLimiter *rate.Limiter
	metrics         *telemetry.Metrics
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

// NewGeminiClient connects to the Gemini API. A missing credential is a
// configuration error and no client is created.
func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, &config.ConfigurationError{Field: "GEMINI_API_KEY", Reason: "is required for embeddings and generation"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return newGeminiClient(&genaiBackend{client: client}, cfg, metrics), nil
}

func newGeminiClient(b backend, cfg *config.Config, metrics *telemetry.Metrics) *GeminiClient {
	limits := getRateLimits(cfg.GeminiTier)

	embedRPM := cfg.EmbeddingRPM
	if embedRPM <= 0 {
		embedRPM = 1500
	}

	return &GeminiClient{
		backend:         b,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		timeout:         cfg.APITimeout,
		embedBreaker:    newBreaker("gemini-embed", metrics),
		generateBreaker: newBreaker("gemini-generate", metrics),
		embedLimiter:    newLimiter(embedRPM),
		generateLimiter: newLimiter(limits.RPM),
		metrics:         metrics,
	}
}

func newBreaker(name string, metrics *telemetry.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})
}

// RPM limit with some buffer
func newLimiter(rpm int) *rate.Limiter {
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), burst)
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 15, TPM: 1000000, RPD: 1500}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 15, TPM: 1000000, RPD: 1500}
	}
}

// Generate sends prompt to the generation model under systemInstruction and
// returns the concatenated text of the first candidate.
func (gc *GeminiClient) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	ctx, span := otel.Tracer("gemini-client").Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.generationModel),
		attribute.Int("gemini.estimated_tokens", estimateTokens(systemInstruction+prompt)),
	)

	fail := func(op string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &GenerationError{Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, gc.timeout)
	defer cancel()

	if err := gc.generateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", fail("rate_limit", err)
	}

	type generated struct {
		text   string
		tokens int
	}

	result, err := gc.generateBreaker.Execute(func() (interface{}, error) {
		text, tokens, err := gc.backend.GenerateContent(ctx, gc.generationModel, systemInstruction, prompt)
		if err != nil {
			return nil, err
		}
		return generated{text: text, tokens: tokens}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			err = ErrCircuitOpen
		}
		return "", fail("request", err)
	}

	out := result.(generated)
	if strings.TrimSpace(out.text) == "" {
		return "", fail("response", ErrEmptyResponse)
	}

	gc.metrics.RecordTokensUsed(int64(out.tokens), gc.generationModel)
	span.SetAttributes(attribute.Int("gemini.actual_tokens", out.tokens))

	return out.text, nil
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.backend != nil {
		return gc.backend.Close()
	}
	return nil
}

// 1 token ≈ 4 characters
func estimateTokens(text string) int {
	return len(text) / 4
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) EmbedContent(ctx context.Context, model string, task TaskType, text string) ([]float32, error) {
	em := b.client.EmbeddingModel(model)
	em.TaskType = task

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Embedding == nil {
		return nil, ErrEmptyEmbedding
	}

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}

func (b *genaiBackend) GenerateContent(ctx context.Context, model, systemInstruction, prompt string) (string, int, error) {
	gm := b.client.GenerativeModel(model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", 0, err
	}

	text := responseText(resp)
	return text, extractTokenUsage(resp, text), nil
}

func (b *genaiBackend) Close() error {
	return b.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse, text string) int {
	if resp != nil && resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	estimated := estimateTokens(text)
	if estimated < 1 {
		estimated = 1 // Minimum 1 token
	}
	return estimated
}
