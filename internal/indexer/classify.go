package indexer

import (
	"strings"
)

// RootKind tells which discovery phase a root belongs to
type RootKind int

const (
	// AppRoot is a start-menu style directory holding shortcuts
	AppRoot RootKind = iota
	// FileRoot is a well-known user content directory
	FileRoot
)

func (k RootKind) String() string {
	switch k {
	case AppRoot:
		return "apps"
	case FileRoot:
		return "files"
	default:
		return "unknown"
	}
}

var appExtensions = map[string]struct{}{
	"lnk":     {},
	"exe":     {},
	"desktop": {},
}

var fileExtensions = buildExtensionTable(map[Category][]string{
	CategoryDocument: {"txt", "pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "rtf"},
	CategoryImage:    {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "ico"},
	CategoryVideo:    {"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm"},
	CategoryAudio:    {"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a"},
	CategoryCode:     {"rs", "js", "ts", "py", "java", "c", "cpp", "h", "cs", "go", "html", "css", "json", "xml", "yaml", "toml"},
	CategoryArchive:  {"zip", "rar", "7z", "tar", "gz", "bz2"},
})

func buildExtensionTable(groups map[Category][]string) map[string]Category {
	table := make(map[string]Category)
	for cat, exts := range groups {
		for _, ext := range exts {
			table[ext] = cat
		}
	}
	return table
}

// Classify maps a root kind and a file extension to a category. The
// extension is matched case-insensitively, with or without the leading dot.
// The second result is false when the file must not be indexed.
func Classify(kind RootKind, ext string) (Category, bool) {
	ext = normalizeExt(ext)
	if ext == "" {
		return "", false
	}

	switch kind {
	case AppRoot:
		if _, ok := appExtensions[ext]; ok {
			return CategoryApplication, true
		}
	case FileRoot:
		if cat, ok := fileExtensions[ext]; ok {
			return cat, true
		}
	}
	return "", false
}

// Accepts reports whether files with ext are indexed under roots of kind
func (k RootKind) Accepts(ext string) bool {
	_, ok := Classify(k, ext)
	return ok
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
