// Package rank implements cosine-similarity ranking of documents against a
// query vector, including min-score filtering, topK truncation, and excerpt
// construction. All functions are pure.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shashi-deop/insightfinder/internal/domain"
)

// DefaultMinScore is the hard relevance cutoff: hits scoring below it are
// excluded before ranking.
const DefaultMinScore = 0.1

// excerptLen is the maximum number of characters taken from document content
// for a result excerpt.
const excerptLen = 300

// Candidate is one (id, content, vector) triple to rank.
type Candidate struct {
	ID      string
	Content string
	Vector  []float32
}

// Rank scores candidates against the query vector, drops hits below minScore,
// sorts by score descending (ties keep input order), and returns at most topK
// results. Candidates whose vector length differs from the query's fail the
// whole call with domain.ErrVectorDimMismatch.
func Rank(query []float32, cands []Candidate, topK int, minScore float64) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, fmt.Errorf("topK must be non-negative, got %d: %w", topK, domain.ErrInvalidArgument)
	}

	results := make([]domain.SearchResult, 0, len(cands))
	for _, c := range cands {
		if len(c.Vector) != len(query) {
			return nil, fmt.Errorf(
				"candidate %q has dimension %d, query has %d: %w",
				c.ID, len(c.Vector), len(query), domain.ErrVectorDimMismatch,
			)
		}
		score := Cosine(query, c.Vector)
		if score < minScore {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:        c.ID,
			Excerpt:   Excerpt(c.Content),
			Score:     score,
			SourceRef: c.ID,
		})
	}

	// Stable: equal scores preserve ingestion order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Cosine returns the cosine similarity dot(a,b)/(|a|*|b|), or 0.0 when either
// norm is exactly zero.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Excerpt builds a bounded preview of content: the first 300 characters with
// newlines collapsed to spaces and surrounding whitespace trimmed, suffixed
// with "..." iff the content was longer than 300 characters.
func Excerpt(content string) string {
	runes := []rune(content)
	truncated := len(runes) > excerptLen

	head := runes
	if truncated {
		head = runes[:excerptLen]
	}

	s := strings.ReplaceAll(string(head), "\n", " ")
	s = strings.TrimSpace(s)
	if truncated {
		s += "..."
	}
	return s
}
