package indexer

import (
	"sync"
	"time"
)

// Category is the closed set of kinds an entry can have
type Category string

const (
	CategoryApplication Category = "application"
	CategoryDocument    Category = "document"
	CategoryImage       Category = "image"
	CategoryVideo       Category = "video"
	CategoryAudio       Category = "audio"
	CategoryCode        Category = "code"
	CategoryArchive     Category = "archive"
	// CategoryGenericFile is part of the model but the build never emits it:
	// files with unknown extensions are dropped instead.
	CategoryGenericFile Category = "generic-file"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryApplication,
	CategoryDocument,
	CategoryImage,
	CategoryVideo,
	CategoryAudio,
	CategoryCode,
	CategoryArchive,
	CategoryGenericFile,
}

// Entry represents a single indexed object
type Entry struct {
	Name     string   `json:"name"`     // Display name, file stem or desktop Name
	Location string   `json:"location"` // Absolute path, the launch target
	Category Category `json:"category"`
}

// Snapshot is one complete generation of the index. Entries must not be
// modified once the snapshot has been installed.
type Snapshot struct {
	Entries    []Entry
	Generation uint64
	BuiltAt    time.Time
}

// Len returns the number of entries in the snapshot
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Index holds the currently installed snapshot with thread-safe access
type Index struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewIndex creates a new empty index
func NewIndex() *Index {
	return &Index{}
}

// Replace installs entries as the new snapshot and returns its generation.
// The slice is owned by the index afterwards.
func (idx *Index) Replace(entries []Entry) uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.current = Snapshot{
		Entries:    entries,
		Generation: idx.current.Generation + 1,
		BuiltAt:    time.Now(),
	}
	return idx.current.Generation
}

// Snapshot returns the currently installed snapshot
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.current
}

// GetAll returns a copy of all entries in snapshot order
func (idx *Index) GetAll() []Entry {
	snap := idx.Snapshot()
	result := make([]Entry, len(snap.Entries))
	copy(result, snap.Entries)
	return result
}

// Count returns the number of entries in the index
func (idx *Index) Count() int {
	return idx.Snapshot().Len()
}
