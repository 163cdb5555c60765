package services

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// whitespaceRun covers Unicode separators as well; \s alone is ASCII-only.
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{85}]+`)

// DefaultArtifactPatterns match strings the PDF export injects into page
// text, such as the "(pdf, 123 kB)" size annotations next to links.
var DefaultArtifactPatterns = []string{
	`(?i)\(?\s*pdf,\s*\d+(?:[.,]\d+)?\s*[kmg]?b\s*\)?`,
}

// Normalizer collapses whitespace, applies NFKC and strips extraction artifacts.
type Normalizer struct {
	artifacts []*regexp.Regexp
}

// NewNormalizer compiles the given artifact patterns; with none it uses
// DefaultArtifactPatterns.
func NewNormalizer(patterns ...string) (*Normalizer, error) {
	if len(patterns) == 0 {
		patterns = DefaultArtifactPatterns
	}
	n := &Normalizer{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		n.artifacts = append(n.artifacts, re)
	}
	return n, nil
}

// Normalize is idempotent: the pipeline is repeated until it reaches a fixed point.
func (n *Normalizer) Normalize(text string) string {
	for i := 0; i < 4; i++ {
		next := n.pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (n *Normalizer) pass(text string) string {
	text = norm.NFKC.String(text)
	for _, re := range n.artifacts {
		for re.MatchString(text) {
			text = re.ReplaceAllString(text, " ")
		}
	}
	return whitespaceRun.ReplaceAllString(text, " ")
}
