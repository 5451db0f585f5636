package search

import (
	"github.com/sahilm/fuzzy"
)

// Scorer computes a fuzzy similarity between a candidate name and a query.
// The boolean is false when the query does not match at all. Higher scores
// rank first; both inputs arrive already case-folded.
type Scorer interface {
	Score(candidate, query string) (int, bool)
}

// ScorerFunc adapts a plain function to the Scorer interface
type ScorerFunc func(candidate, query string) (int, bool)

// Score calls f(candidate, query)
func (f ScorerFunc) Score(candidate, query string) (int, bool) {
	return f(candidate, query)
}

// FuzzyScorer matches the query as a subsequence of the candidate. Runs of
// adjacent characters, word starts and camel-case humps earn bonuses,
// leading and unmatched characters cost a penalty.
type FuzzyScorer struct{}

// Score implements Scorer
func (FuzzyScorer) Score(candidate, query string) (int, bool) {
	if query == "" {
		return 0, false
	}
	matches := fuzzy.FindFrom(query, single(candidate))
	if len(matches) == 0 {
		return 0, false
	}
	return matches[0].Score, true
}

// single is a one-element fuzzy.Source
type single string

func (s single) String(int) string { return string(s) }
func (s single) Len() int          { return 1 }
