package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xADE/ade-find/internal/indexer"
	"github.com/0xADE/ade-find/internal/metrics"
)

// Summary counts the entries of one snapshot
type Summary struct {
	Total        int                      `json:"total"`
	Applications int                      `json:"applications"`
	Files        int                      `json:"files"`
	ByCategory   map[indexer.Category]int `json:"by_category"`
	Generation   uint64                   `json:"generation"`
}

func (s Summary) String() string {
	return fmt.Sprintf("Total items: %d\nApps: %d\nFiles: %d", s.Total, s.Applications, s.Files)
}

// Summary reports entry counts of the installed snapshot. Every category is
// listed, with zero when absent.
func (e *Engine) Summary() Summary {
	snap := e.index.Snapshot()

	sum := Summary{
		Total:      len(snap.Entries),
		ByCategory: make(map[indexer.Category]int, len(indexer.Categories)),
		Generation: snap.Generation,
	}
	for _, cat := range indexer.Categories {
		sum.ByCategory[cat] = 0
	}
	for _, entry := range snap.Entries {
		sum.ByCategory[entry.Category]++
		if entry.Category == indexer.CategoryApplication {
			sum.Applications++
		} else {
			sum.Files++
		}
	}
	return sum
}

// DebugSearch returns up to DebugLimit entries whose name or location
// contains query, ignoring case, in snapshot order. No ranking is applied.
func (e *Engine) DebugSearch(query string) []indexer.Entry {
	defer metrics.ObserveQuery("debug-search", time.Now())

	snap := e.index.Snapshot()
	needle := strings.ToLower(query)

	out := []indexer.Entry{}
	for _, entry := range snap.Entries {
		if len(out) >= e.debugLimit {
			break
		}
		if strings.Contains(strings.ToLower(entry.Name), needle) ||
			strings.Contains(strings.ToLower(entry.Location), needle) {
			out = append(out, entry)
		}
	}
	e.logger.Debug("debug search", "query", query, "results", len(out))
	return out
}
