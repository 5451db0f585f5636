package search

import (
	"fmt"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xADE/ade-find/internal/indexer"
)

func app(name string) indexer.Entry {
	return indexer.Entry{Name: name, Location: `C:\Start Menu\` + name + ".lnk", Category: indexer.CategoryApplication}
}

func doc(name string) indexer.Entry {
	return indexer.Entry{Name: name, Location: "/home/user/Documents/" + name + ".pdf", Category: indexer.CategoryDocument}
}

func names(entries []indexer.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		index  *indexer.Index
		engine *Engine
		opts   Options
	)

	BeforeEach(func() {
		index = indexer.NewIndex()
		opts = Options{}
	})

	JustBeforeEach(func() {
		var err error
		engine, err = NewEngine(index, opts)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Search", func() {
		Context("with a single Visual Studio Code shortcut", func() {
			BeforeEach(func() {
				index.Replace([]indexer.Entry{app("Visual Studio Code")})
			})

			It("should find it from an abbreviation", func() {
				Expect(names(engine.Search("vscode"))).To(Equal([]string{"Visual Studio Code"}))
			})

			It("should score the full name as a substring match", func() {
				matches := engine.Rank("Visual Studio Code")
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].Score).To(Equal(ScoreExact))
			})

			It("should ignore case", func() {
				matches := engine.Rank("STUDIO")
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].Score).To(Equal(ScoreExact))
			})

			It("should leave out names the query cannot match", func() {
				Expect(engine.Search("zzz")).To(BeEmpty())
			})
		})

		Context("with underscores and hyphens", func() {
			BeforeEach(func() {
				index.Replace([]indexer.Entry{doc("budget_report")})
			})

			It("should fold separators on both sides", func() {
				matches := engine.Rank("budget-report")
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].Score).To(Equal(ScoreNormalized))
				Expect(matches[0].Entry).To(Equal(doc("budget_report")))
			})

			It("should match a spaced query against the separated name", func() {
				matches := engine.Rank("Budget Report")
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].Score).To(Equal(ScoreNormalized))
			})
		})

		Context("with an empty index", func() {
			It("should return an empty result", func() {
				result := engine.Search("anything")
				Expect(result).NotTo(BeNil())
				Expect(result).To(BeEmpty())
			})
		})

		Context("with an empty query", func() {
			BeforeEach(func() {
				index.Replace([]indexer.Entry{app("Terminal")})
			})

			It("should return nothing", func() {
				result := engine.Search("")
				Expect(result).NotTo(BeNil())
				Expect(result).To(BeEmpty())
			})
		})

		Context("with more matches than the result limit", func() {
			BeforeEach(func() {
				var entries []indexer.Entry
				for i := range 20 {
					entries = append(entries, doc(fmt.Sprintf("report %02d", i)))
				}
				index.Replace(entries)
			})

			It("should return eight results", func() {
				Expect(engine.Search("report")).To(HaveLen(DefaultResultLimit))
			})

			It("should keep snapshot order for equal scores", func() {
				Expect(names(engine.Search("report"))).To(Equal([]string{
					"report 00", "report 01", "report 02", "report 03",
					"report 04", "report 05", "report 06", "report 07",
				}))
			})

			Context("and a custom limit", func() {
				BeforeEach(func() {
					opts.ResultLimit = 3
				})

				It("should honor it", func() {
					Expect(engine.Search("report")).To(HaveLen(3))
				})
			})
		})

		Context("with mixed rules", func() {
			BeforeEach(func() {
				index.Replace([]indexer.Entry{
					doc("vendor code"),
					doc("vs-code"),
					app("VS Code"),
				})
			})

			It("should rank substring over normalized over fuzzy matches", func() {
				matches := engine.Rank("vs code")
				Expect(names([]indexer.Entry{matches[0].Entry, matches[1].Entry})).To(Equal([]string{"VS Code", "vs-code"}))
				Expect(matches[0].Score).To(Equal(ScoreExact))
				Expect(matches[1].Score).To(Equal(ScoreNormalized))
				if len(matches) > 2 {
					Expect(matches[2].Score).To(BeNumerically("<", ScoreNormalized))
				}
			})
		})

		Context("with a pluggable scorer", func() {
			var calls [][2]string

			BeforeEach(func() {
				calls = nil
				opts.Scorer = ScorerFunc(func(candidate, query string) (int, bool) {
					calls = append(calls, [2]string{candidate, query})
					if strings.HasPrefix(candidate, "b") {
						return 50, true
					}
					if strings.HasPrefix(candidate, "c") {
						return 70, true
					}
					return 0, false
				})
				index.Replace([]indexer.Entry{doc("alpha"), doc("beta"), doc("charlie"), doc("bravo")})
			})

			It("should order by the scorer and keep ties stable", func() {
				Expect(names(engine.Search("q"))).To(Equal([]string{"charlie", "beta", "bravo"}))
			})

			It("should pass case-folded candidates and queries", func() {
				engine.Search("Q_x")
				Expect(calls).To(ContainElement([2]string{"alpha", "q_x"}))
				Expect(calls).To(ContainElement([2]string{"alpha", "q x"}))
			})

			It("should use the better of the verbatim and normalized scores", func() {
				opts.Scorer = ScorerFunc(func(candidate, query string) (int, bool) {
					if strings.Contains(query, " ") {
						return 80, true
					}
					return 10, true
				})
				e, err := NewEngine(index, opts)
				Expect(err).NotTo(HaveOccurred())
				for _, m := range e.Rank("x-y") {
					Expect(m.Score).To(Equal(80))
				}
			})
		})

		Context("with caching enabled", func() {
			BeforeEach(func() {
				opts.CacheSize = 16
				index.Replace([]indexer.Entry{app("Terminal")})
			})

			It("should not serve results from an older snapshot", func() {
				Expect(names(engine.Search("term"))).To(Equal([]string{"Terminal"}))
				index.Replace([]indexer.Entry{app("Terminator")})
				Expect(names(engine.Search("term"))).To(Equal([]string{"Terminator"}))
			})

			It("should hand out copies of cached results", func() {
				first := engine.Rank("term")
				first[0].Name = "changed"
				Expect(names(engine.Search("term"))).To(Equal([]string{"Terminal"}))
			})
		})
	})

	Describe("concurrent rebuilds", func() {
		BeforeEach(func() {
			opts.CacheSize = 4
		})

		It("should always rank against one whole snapshot", func() {
			snapshot := func(prefix string) []indexer.Entry {
				out := make([]indexer.Entry, 10)
				for i := range out {
					out[i] = indexer.Entry{Name: "item", Location: fmt.Sprintf("/%s/%d", prefix, i), Category: indexer.CategoryCode}
				}
				return out
			}
			a, b := snapshot("a"), snapshot("b")
			index.Replace(a)

			done := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; ; i++ {
					select {
					case <-done:
						return
					default:
					}
					if i%2 == 0 {
						index.Replace(b)
					} else {
						index.Replace(a)
					}
				}
			}()

			for range 200 {
				result := engine.Search("item")
				Expect(result).To(HaveLen(DefaultResultLimit))
				prefix := result[0].Location[:3]
				for _, e := range result {
					Expect(e.Location).To(HavePrefix(prefix))
				}
			}
			close(done)
			wg.Wait()
		})
	})
})

var _ = Describe("FuzzyScorer", func() {
	var scorer FuzzyScorer

	It("should match subsequences", func() {
		_, ok := scorer.Score("visual studio code", "vscode")
		Expect(ok).To(BeTrue())
	})

	It("should reject queries that are not subsequences", func() {
		_, ok := scorer.Score("terminal", "xyz")
		Expect(ok).To(BeFalse())
	})

	It("should reject an empty query", func() {
		_, ok := scorer.Score("terminal", "")
		Expect(ok).To(BeFalse())
	})

	It("should reward adjacent characters", func() {
		adjacent, ok := scorer.Score("abcxyz", "abc")
		Expect(ok).To(BeTrue())
		spread, ok := scorer.Score("axbxcx", "abc")
		Expect(ok).To(BeTrue())
		Expect(adjacent).To(BeNumerically(">", spread))
	})
})
