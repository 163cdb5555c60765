package services

import (
	"context"
	"errors"
	"strings"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Generator produces an answer for prompt under a fixed system instruction.
type Generator interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}

type AnswerKind string

const (
	KindEmpty     AnswerKind = "empty"
	KindGreeting  AnswerKind = "greeting"
	KindRefusal   AnswerKind = "refusal"
	KindRetrieval AnswerKind = "retrieval"
	KindDegraded  AnswerKind = "degraded"
)

// Answer is the result of one question. HTML is Text with bullet lines
// grouped into lists; both are empty for an empty question.
type Answer struct {
	Question string
	Text     string
	HTML     string
	Kind     AnswerKind
	Sources  int
}

// Rule is one step of the answer cascade. The first rule whose Match
// returns true produces the answer.
type Rule struct {
	Name    string
	Match   func(question string) bool
	Respond func(ctx context.Context, question string, index *VectorIndex) Answer
}

type Orchestrator struct {
	embedder  Embedder
	generator Generator
	topK      int
	rules     []Rule
	metrics   *telemetry.Metrics
}

func NewOrchestrator(embedder Embedder, generator Generator, topK int, metrics *telemetry.Metrics) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	o := &Orchestrator{
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		metrics:   metrics,
	}
	o.rules = []Rule{
		EmptyRule(),
		GreetingRule(Greetings),
		DenylistRule(OffTopicPhrases),
		o.RetrievalRule(),
	}
	return o
}

// Rules returns the cascade in evaluation order.
func (o *Orchestrator) Rules() []Rule {
	return o.rules
}

// Answer runs the cascade. Operational failures become a degraded answer;
// an error is returned only for a nil index or missing dependencies.
func (o *Orchestrator) Answer(ctx context.Context, question string, index *VectorIndex) (Answer, error) {
	if index == nil {
		return Answer{}, ErrNilIndex
	}
	if o.embedder == nil || o.generator == nil {
		return Answer{}, errors.New("orchestrator: embedder and generator are required")
	}

	ctx, span := otel.Tracer("orchestrator").Start(ctx, "answer")
	defer span.End()

	question = strings.TrimSpace(question)

	for _, rule := range o.rules {
		if !rule.Match(question) {
			continue
		}

		answer := rule.Respond(ctx, question, index)
		answer.Question = question
		if answer.Text != "" {
			answer.HTML = BulletsToHTML(answer.Text)
		}

		span.SetAttributes(
			attribute.String("answer.rule", rule.Name),
			attribute.String("answer.kind", string(answer.Kind)),
		)
		o.metrics.RecordQuery(string(answer.Kind))
		return answer, nil
	}

	// The retrieval rule matches everything, so this is unreachable with the default rules.
	return Answer{Question: question, Kind: KindEmpty}, nil
}

// AnswerText returns only the answer text. A contract violation yields an
// empty string and is logged.
func (o *Orchestrator) AnswerText(ctx context.Context, question string, index *VectorIndex) string {
	answer, err := o.Answer(ctx, question, index)
	if err != nil {
		logger.Error("Cannot answer question", "error", err)
		return ""
	}
	return answer.Text
}

func EmptyRule() Rule {
	return Rule{
		Name:  "empty",
		Match: func(q string) bool { return q == "" },
		Respond: func(context.Context, string, *VectorIndex) Answer {
			return Answer{Kind: KindEmpty}
		},
	}
}

func GreetingRule(greetings []string) Rule {
	set := make(map[string]struct{}, len(greetings))
	for _, g := range greetings {
		set[strings.ToLower(g)] = struct{}{}
	}
	return Rule{
		Name: "greeting",
		Match: func(q string) bool {
			_, ok := set[strings.ToLower(strings.TrimSpace(q))]
			return ok
		},
		Respond: func(context.Context, string, *VectorIndex) Answer {
			return Answer{Text: GreetingAnswer, Kind: KindGreeting}
		},
	}
}

func DenylistRule(phrases []string) Rule {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return Rule{
		Name: "denylist",
		Match: func(q string) bool {
			q = strings.ToLower(q)
			for _, p := range lowered {
				if strings.Contains(q, p) {
					return true
				}
			}
			return false
		},
		Respond: func(context.Context, string, *VectorIndex) Answer {
			return Answer{Text: OutOfDomainAnswer, Kind: KindRefusal}
		},
	}
}

// RetrievalRule embeds the question, retrieves the top-k chunks and asks the
// generation model. It matches every question.
func (o *Orchestrator) RetrievalRule() Rule {
	return Rule{
		Name:    "retrieval",
		Match:   func(string) bool { return true },
		Respond: o.retrieve,
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, question string, index *VectorIndex) Answer {
	queryVec, err := o.embedder.Embed(ctx, question, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Warn("Query embedding failed", "error", err)
		o.metrics.RecordEmbeddingFailure("query")
		return Answer{Text: DegradedAnswer, Kind: KindDegraded}
	}

	texts := index.Search(queryVec, o.topK)
	prompt := buildPrompt(question, strings.Join(texts, "\n"))

	text, err := o.generator.Generate(ctx, SystemInstruction, prompt)
	if err != nil {
		logger.Warn("Answer generation failed", "error", err, "sources", len(texts))
		return Answer{Text: DegradedAnswer, Kind: KindDegraded, Sources: len(texts)}
	}

	return Answer{Text: text, Kind: KindRetrieval, Sources: len(texts)}
}
