package selection

import (
	"sort"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// Candidate is a symbol with a ranking score
type Candidate struct {
	Symbol string
	Score  float64
}

// Rank sorts candidates by score (descending), ties broken by symbol (ascending).
// The input slice is not modified.
// ⭐ SSOT: 순위 결정 규칙은 여기서만
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	return ranked
}

// Top returns the symbols of the first n ranked candidates
func Top(ranked []Candidate, n int) []string {
	if n > len(ranked) {
		n = len(ranked)
	}
	if n <= 0 {
		return []string{}
	}

	symbols := make([]string, n)
	for i := 0; i < n; i++ {
		symbols[i] = ranked[i].Symbol
	}
	return symbols
}

// Select keeps eligible scores and returns the top N symbols.
// An empty result means hold cash.
func Select(scores []contracts.MomentumScore, topN int) []string {
	candidates := make([]Candidate, 0, len(scores))
	for _, s := range scores {
		if !s.Eligible {
			continue
		}
		candidates = append(candidates, Candidate{Symbol: s.Symbol, Score: s.Value})
	}

	return Top(Rank(candidates), topN)
}
