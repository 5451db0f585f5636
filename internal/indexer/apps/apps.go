package apps

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/0xADE/ade-find/internal/indexer/walk"
)

// Shortcut is an application launcher found under a start-menu root
type Shortcut struct {
	Name string // Display name
	Path string // Path to the shortcut, executable or .desktop file
}

// DesktopEntry holds the keys of a .desktop file used for indexing
type DesktopEntry struct {
	Name      string
	NoDisplay bool
	Hidden    bool
}

// Scan walks rootPath following symlinks with no depth limit and returns
// every file whose extension accept admits, in traversal order.
func Scan(ctx context.Context, rootPath string, accept func(ext string) bool, onSkip func(string, error)) ([]Shortcut, error) {
	var found []Shortcut

	opts := walk.Options{FollowLinks: true, OnSkip: onSkip}
	err := walk.Walk(ctx, rootPath, opts, func(path string, _ fs.FileInfo) {
		stem, ext := walk.SplitName(path)
		if stem == "" || !accept(ext) {
			return
		}

		name := stem
		if strings.EqualFold(ext, "desktop") {
			entry, err := ParseDesktopFile(path)
			if err != nil {
				if onSkip != nil {
					onSkip(path, err)
				}
				return
			}
			if entry.NoDisplay || entry.Hidden {
				return
			}
			if entry.Name != "" {
				name = entry.Name
			}
		}

		found = append(found, Shortcut{Name: name, Path: path})
	})
	return found, err
}

// ParseDesktopFile reads the [Desktop Entry] group of a .desktop file
func ParseDesktopFile(path string) (*DesktopEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entry := &DesktopEntry{}
	scanner := bufio.NewScanner(file)
	var inDesktopEntry bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inDesktopEntry = strings.Trim(line, "[]") == "Desktop Entry"
			continue
		}

		if !inDesktopEntry {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			entry.Name = value
		case "NoDisplay":
			entry.NoDisplay = strings.EqualFold(value, "true")
		case "Hidden":
			entry.Hidden = strings.EqualFold(value, "true")
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entry, nil
}
