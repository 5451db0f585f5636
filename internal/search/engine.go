// Package search answers ranked queries against the installed index
// snapshot.
//
// Each entry gets the score of the first rule that applies:
//
//  1. the case-folded name contains the case-folded query: ScoreExact
//  2. the normalized name contains the normalized query: ScoreNormalized
//  3. the best Scorer result of the case-folded and normalized pairs
//
// Normalizing folds case and turns '_' and '-' into spaces. Entries no
// rule matches are left out. Ties keep snapshot order.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/0xADE/ade-find/internal/indexer"
	"github.com/0xADE/ade-find/internal/metrics"
)

const (
	ScoreExact      = 10000
	ScoreNormalized = 9000

	DefaultResultLimit = 8
	DefaultDebugLimit  = 20
)

var separators = strings.NewReplacer("_", " ", "-", " ")

// Options configures an Engine
type Options struct {
	Scorer      Scorer // nil means FuzzyScorer
	ResultLimit int
	DebugLimit  int
	CacheSize   int // ranked results kept per query, 0 disables the cache
	Logger      *slog.Logger
}

// Match is a ranked entry
type Match struct {
	indexer.Entry
	Score int `json:"score"`
}

type cacheKey struct {
	generation uint64
	query      string
}

// Engine runs queries against an Index. It is safe for concurrent use,
// including while the index is being rebuilt.
type Engine struct {
	index       *indexer.Index
	scorer      Scorer
	resultLimit int
	debugLimit  int
	cache       *lru.Cache[cacheKey, []Match]
	logger      *slog.Logger
}

// NewEngine creates an engine reading from index
func NewEngine(index *indexer.Index, opts Options) (*Engine, error) {
	e := &Engine{
		index:       index,
		scorer:      opts.Scorer,
		resultLimit: opts.ResultLimit,
		debugLimit:  opts.DebugLimit,
		logger:      opts.Logger,
	}
	if e.scorer == nil {
		e.scorer = FuzzyScorer{}
	}
	if e.resultLimit <= 0 {
		e.resultLimit = DefaultResultLimit
	}
	if e.debugLimit <= 0 {
		e.debugLimit = DefaultDebugLimit
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "search")

	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, []Match](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Search returns up to ResultLimit entries ranked against query. An empty
// query returns nothing.
func (e *Engine) Search(query string) []indexer.Entry {
	matches := e.Rank(query)
	if len(matches) == 0 {
		return []indexer.Entry{}
	}
	out := make([]indexer.Entry, len(matches))
	for i, m := range matches {
		out[i] = m.Entry
	}
	return out
}

// Rank is Search with the scores attached
func (e *Engine) Rank(query string) []Match {
	if query == "" {
		return []Match{}
	}
	defer metrics.ObserveQuery("search", time.Now())

	snap := e.index.Snapshot()
	key := cacheKey{generation: snap.Generation, query: query}
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			return append([]Match(nil), cached...)
		}
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
	}

	matches := e.rank(snap.Entries, query)
	e.logger.Debug("ranked", "query", query, "results", len(matches), "generation", snap.Generation)

	if e.cache != nil {
		e.cache.Add(key, matches)
		return append([]Match(nil), matches...)
	}
	return matches
}

func (e *Engine) rank(entries []indexer.Entry, query string) []Match {
	lowerQuery := strings.ToLower(query)
	normQuery := separators.Replace(lowerQuery)

	var candidates []Match
	for _, entry := range entries {
		score, ok := e.score(entry.Name, lowerQuery, normQuery)
		if !ok {
			continue
		}
		candidates = append(candidates, Match{Entry: entry, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > e.resultLimit {
		candidates = candidates[:e.resultLimit]
	}
	if candidates == nil {
		candidates = []Match{}
	}
	return candidates
}

func (e *Engine) score(name, lowerQuery, normQuery string) (int, bool) {
	lowerName := strings.ToLower(name)
	if strings.Contains(lowerName, lowerQuery) {
		return ScoreExact, true
	}

	normName := separators.Replace(lowerName)
	if strings.Contains(normName, normQuery) {
		return ScoreNormalized, true
	}

	verbatim, okVerbatim := e.scorer.Score(lowerName, lowerQuery)
	normalized, okNormalized := e.scorer.Score(normName, normQuery)
	switch {
	case okVerbatim && okNormalized:
		return max(verbatim, normalized), true
	case okVerbatim:
		return verbatim, true
	case okNormalized:
		return normalized, true
	default:
		return 0, false
	}
}
