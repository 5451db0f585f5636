package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/0xADE/ade-find/internal/indexer/apps"
	"github.com/0xADE/ade-find/internal/indexer/files"
	"github.com/0xADE/ade-find/internal/metrics"
)

const (
	defaultWorkers   = 4
	defaultFileDepth = 3
)

// Options configures an Indexer
type Options struct {
	// Roots returns the roots to traverse; it is called once per Build so
	// reloaded configuration is picked up. Nil means DefaultRoots.
	Roots     func() Roots
	Workers   int // roots scanned concurrently
	FileDepth int // depth bound of the files phase
	Logger    *slog.Logger
}

// Indexer builds snapshots from the filesystem and installs them in its Index
type Indexer struct {
	index  *Index
	opts   Options
	logger *slog.Logger

	group   singleflight.Group
	buildMu sync.Mutex // one writer at a time
	running atomic.Int32

	bgMu   sync.Mutex // guards bgWg.Add against Wait
	bgWg   sync.WaitGroup
	closed bool
}

// NewIndexer creates an indexer that installs snapshots into index
func NewIndexer(index *Index, opts Options) *Indexer {
	if opts.Roots == nil {
		opts.Roots = DefaultRoots
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.FileDepth <= 0 {
		opts.FileDepth = defaultFileDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		index:  index,
		opts:   opts,
		logger: logger.With("component", "indexer"),
	}
}

// Start runs Build in the background. Errors are logged; callers that need
// them use Build directly. Start does nothing once Wait has been called.
func (idx *Indexer) Start(ctx context.Context) {
	idx.bgMu.Lock()
	defer idx.bgMu.Unlock()
	if idx.closed {
		idx.logger.Debug("build not started, indexer closed")
		return
	}

	idx.bgWg.Add(1)
	go func() {
		defer idx.bgWg.Done()
		if _, err := idx.Build(ctx); err != nil {
			idx.logger.Error("background build failed", "err", err)
		}
	}()
}

// Wait blocks until every build started with Start has finished. Later
// Start calls are ignored.
func (idx *Indexer) Wait() {
	idx.bgMu.Lock()
	idx.closed = true
	idx.bgMu.Unlock()

	idx.bgWg.Wait()
}

// Build rebuilds the index from the configured roots and returns the size
// of the installed snapshot
func (idx *Indexer) Build(ctx context.Context) (int, error) {
	return idx.Reindex(ctx, idx.opts.Roots())
}

// Reindex rebuilds the index from roots. Concurrent calls for the same
// roots share one traversal, which runs under the context of the caller
// that started it. A caller whose own ctx is still live retries when the
// shared traversal was cancelled by another caller. The previous snapshot
// stays installed when the build fails.
func (idx *Indexer) Reindex(ctx context.Context, roots Roots) (int, error) {
	key := fmt.Sprintf("%q|%q", roots.Apps, roots.Files)
	for {
		v, err, shared := idx.group.Do(key, func() (any, error) {
			return idx.build(ctx, roots)
		})
		if shared {
			idx.logger.Debug("build shared with concurrent caller")
		}
		if err != nil {
			if shared && isCancelled(err) && ctx.Err() == nil {
				idx.logger.Debug("shared build cancelled, retrying")
				continue
			}
			return 0, err
		}
		return v.(int), nil
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (idx *Indexer) build(ctx context.Context, roots Roots) (int, error) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	idx.running.Add(1)
	defer idx.running.Add(-1)

	start := time.Now()
	idx.logger.Info("build started", "app_roots", len(roots.Apps), "file_roots", len(roots.Files))

	entries, err := idx.collect(ctx, roots)
	if err != nil {
		result := "error"
		if isCancelled(err) {
			result = "cancelled"
		}
		metrics.BuildsTotal.WithLabelValues(result).Inc()
		return 0, fmt.Errorf("build index: %w", err)
	}

	generation := idx.index.Replace(entries)

	elapsed := time.Since(start)
	metrics.BuildsTotal.WithLabelValues("ok").Inc()
	metrics.BuildDuration.Observe(elapsed.Seconds())
	recordSizes(entries)

	idx.logger.Info("build finished",
		"entries", len(entries),
		"generation", generation,
		"elapsed", elapsed,
	)
	return len(entries), nil
}

// collect scans every root concurrently. Results are kept per root and
// joined in root order, apps first, so an unchanged filesystem always
// yields the same snapshot order.
func (idx *Indexer) collect(ctx context.Context, roots Roots) ([]Entry, error) {
	perRoot := make([][]Entry, len(roots.Apps)+len(roots.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.Workers)

	for i, root := range roots.Apps {
		g.Go(func() error {
			found, err := apps.Scan(gctx, root, AppRoot.Accepts, idx.skip)
			if err := idx.rootError(root, err); err != nil {
				return err
			}
			out := make([]Entry, 0, len(found))
			for _, sc := range found {
				out = append(out, Entry{Name: sc.Name, Location: sc.Path, Category: CategoryApplication})
			}
			perRoot[i] = out
			return nil
		})
	}

	offset := len(roots.Apps)
	for i, root := range roots.Files {
		g.Go(func() error {
			found, err := files.Scan(gctx, root, idx.opts.FileDepth, FileRoot.Accepts, idx.skip)
			if err := idx.rootError(root, err); err != nil {
				return err
			}
			out := make([]Entry, 0, len(found))
			for _, f := range found {
				cat, ok := Classify(FileRoot, f.Ext)
				if !ok {
					continue
				}
				out = append(out, Entry{Name: f.Name, Location: f.Path, Category: cat})
			}
			perRoot[offset+i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range perRoot {
		total += len(part)
	}
	entries := make([]Entry, 0, total)
	for _, part := range perRoot {
		entries = append(entries, part...)
	}
	return entries, nil
}

// rootError keeps cancellation fatal and turns everything else into a
// skipped root
func (idx *Indexer) rootError(root string, err error) error {
	if err == nil {
		return nil
	}
	if isCancelled(err) {
		return err
	}
	if errors.Is(err, os.ErrNotExist) {
		idx.logger.Debug("root missing", "root", root)
		return nil
	}
	idx.logger.Warn("root skipped", "root", root, "err", err)
	return nil
}

func (idx *Indexer) skip(path string, err error) {
	idx.logger.Debug("path skipped", "path", path, "err", err)
}

func recordSizes(entries []Entry) {
	counts := make(map[Category]int, len(Categories))
	for _, e := range entries {
		counts[e.Category]++
	}
	for _, cat := range Categories {
		metrics.IndexEntries.WithLabelValues(string(cat)).Set(float64(counts[cat]))
	}
}

// GetIndex returns the index instance
func (idx *Indexer) GetIndex() *Index {
	return idx.index
}

// IsRunning returns whether a build is in progress
func (idx *Indexer) IsRunning() bool {
	return idx.running.Load() > 0
}
