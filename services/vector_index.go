package services

import (
	"errors"
	"math"
	"sort"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 20

var ErrNilIndex = errors.New("vector index is nil")

// Entry pairs a chunk with its embedding at a stable position.
type Entry struct {
	Text   string
	Vector []float64
}

// SearchResult is a retrieved chunk with its cosine similarity.
type SearchResult struct {
	Text       string
	Similarity float64
	Position   int
}

// VectorIndex is an append-only list of entries searched exhaustively.
// It is filled once by the IndexBuilder and read concurrently afterwards
// without locking, so Add must not be called once the index is shared.
type VectorIndex struct {
	entries []Entry
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

func (vi *VectorIndex) Add(text string, vector []float64) {
	vi.entries = append(vi.entries, Entry{Text: text, Vector: vector})
}

func (vi *VectorIndex) Len() int {
	return len(vi.entries)
}

// Search returns the texts of the min(k, Len()) most similar entries.
func (vi *VectorIndex) Search(query []float64, k int) []string {
	results := vi.SearchScored(query, k)
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}

// SearchScored ranks every entry by cosine similarity, descending, keeping
// insertion order for ties. k <= 0 means DefaultTopK.
func (vi *VectorIndex) SearchScored(query []float64, k int) []SearchResult {
	if k <= 0 {
		k = DefaultTopK
	}

	results := make([]SearchResult, len(vi.entries))
	for i, e := range vi.entries {
		results[i] = SearchResult{Text: e.Text, Similarity: CosineSimilarity(query, e.Vector), Position: i}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// CosineSimilarity computes dot(a, b) / (|a| |b|). Vectors of different
// length or with zero norm have similarity 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
