// Package walk traverses directory trees for the discovery phases.
// Unreadable directories and broken entries are skipped, never returned
// as errors: one bad subtree must not stop the rest of the walk.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Options controls a single walk
type Options struct {
	// FollowLinks descends into symlinked directories and reports
	// symlinked files. A directory whose resolved path is already on the
	// current descent is a loop and is not entered again; the same
	// directory reached through two links is walked twice.
	FollowLinks bool
	// MaxDepth bounds the walk, the root being depth 0 and its direct
	// children depth 1. Zero means unlimited.
	MaxDepth int
	// OnSkip, when set, is called for every path dropped because of an error
	OnSkip func(path string, err error)
}

// VisitFunc receives every non-directory file found by the walk
type VisitFunc func(path string, info fs.FileInfo)

type walker struct {
	opts      Options
	visit     VisitFunc
	ancestors map[string]struct{} // resolved dirs of the current descent
}

// Walk visits the files under root. The root itself is resolved even when
// FollowLinks is off. The only errors returned are a missing or
// non-directory root and context cancellation.
func Walk(ctx context.Context, root string, opts Options, visit VisitFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	w := &walker{
		opts:      opts,
		visit:     visit,
		ancestors: make(map[string]struct{}),
	}
	return w.dir(ctx, root, 0)
}

func (w *walker) dir(ctx context.Context, path string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.opts.FollowLinks {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			w.skip(path, err)
			return nil
		}
		if _, ok := w.ancestors[real]; ok {
			return nil
		}
		w.ancestors[real] = struct{}{}
		defer delete(w.ancestors, real)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		w.skip(path, err)
		// ReadDir returns what it could read before failing
		if len(entries) == 0 {
			return nil
		}
	}

	childDepth := depth + 1
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		mode := entry.Type()

		if mode&fs.ModeSymlink != 0 {
			if !w.opts.FollowLinks {
				continue
			}
			info, err := os.Stat(child)
			if err != nil {
				w.skip(child, err)
				continue
			}
			if info.IsDir() {
				if err := w.descend(ctx, child, childDepth); err != nil {
					return err
				}
				continue
			}
			if w.within(childDepth) {
				w.visit(child, info)
			}
			continue
		}

		if entry.IsDir() {
			if err := w.descend(ctx, child, childDepth); err != nil {
				return err
			}
			continue
		}

		if !mode.IsRegular() || !w.within(childDepth) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			w.skip(child, err)
			continue
		}
		w.visit(child, info)
	}
	return nil
}

// descend enters a directory at depth if any of its children can still be
// reported
func (w *walker) descend(ctx context.Context, path string, depth int) error {
	if w.opts.MaxDepth > 0 && depth >= w.opts.MaxDepth {
		return nil
	}
	return w.dir(ctx, path, depth)
}

func (w *walker) within(depth int) bool {
	return w.opts.MaxDepth <= 0 || depth <= w.opts.MaxDepth
}

func (w *walker) skip(path string, err error) {
	if w.opts.OnSkip != nil {
		w.opts.OnSkip(path, err)
	}
}

// SplitName returns the file name of path without its extension, and the
// extension without the dot. A dotfile such as ".png" has an empty stem.
func SplitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	dot := filepath.Ext(base)
	stem = base[:len(base)-len(dot)]
	if dot != "" {
		ext = dot[1:]
	}
	return stem, ext
}
