package files

import (
	"context"
	"io/fs"

	"github.com/0xADE/ade-find/internal/indexer/walk"
)

// File is a user file kept by the files phase
type File struct {
	Name string // File stem
	Path string // Full path
	Ext  string // Extension without the dot, original case
}

// Scan walks rootPath without following symlinks, down to maxDepth levels
// below the root, and returns the regular files whose extension accept
// admits, in traversal order.
func Scan(ctx context.Context, rootPath string, maxDepth int, accept func(ext string) bool, onSkip func(string, error)) ([]File, error) {
	var found []File

	opts := walk.Options{MaxDepth: maxDepth, OnSkip: onSkip}
	err := walk.Walk(ctx, rootPath, opts, func(path string, info fs.FileInfo) {
		if !info.Mode().IsRegular() {
			return
		}
		stem, ext := walk.SplitName(path)
		if stem == "" || ext == "" || !accept(ext) {
			return
		}
		found = append(found, File{Name: stem, Path: path, Ext: ext})
	})
	return found, err
}
