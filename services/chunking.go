package services

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize  = 1000
	sentenceDelimiter = ". "
)

// Chunker greedily packs sentences into chunks of at most maxChunkSize
// characters. A sentence longer than the budget becomes its own chunk.
type Chunker struct {
	maxChunkSize int
}

func NewChunker(maxChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	return &Chunker{maxChunkSize: maxChunkSize}
}

// MaxChunkSize returns the character budget.
func (c *Chunker) MaxChunkSize() int { return c.maxChunkSize }

// ChunkText splits normalized text on ". " and accumulates the fragments.
func (c *Chunker) ChunkText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	seal := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range strings.Split(text, sentenceDelimiter) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if !endsWithTerminal(sentence) {
			sentence += "."
		}

		sentenceLen := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+sentenceLen+1 > c.maxChunkSize {
			seal()
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	seal()

	return chunks
}

func endsWithTerminal(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
