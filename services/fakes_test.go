package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"viola-chatbot/internal/ai"
)

// fakeEmbedder hashes words into a small bag-of-words vector so that texts
// sharing words are similar.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]bool
	err    error
	// openCalls makes the first openCalls calls fail as if the breaker were open.
	openCalls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, _ ai.TaskType) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	open := f.calls <= f.openCalls
	f.mu.Unlock()

	if open {
		return nil, &ai.EmbeddingError{Op: "request", Err: ai.ErrCircuitOpen}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn[text] {
		return nil, &ai.EmbeddingError{Op: "request", Err: errors.New("remote failure")}
	}

	vec := make([]float32, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,!?")))
		vec[h.Sum32()%16]++
	}
	vec[15] += 0.01
	return ai.NormalizeVector(vec)
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu         sync.Mutex
	calls      int
	answer     string
	err        error
	lastSystem string
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, systemInstruction, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSystem = systemInstruction
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type staticSource struct {
	text  string
	calls int
}

func (s *staticSource) ExtractFolder(context.Context, string) (*ExtractionResult, error) {
	s.calls++
	return &ExtractionResult{Text: s.text, Files: 1}, nil
}
