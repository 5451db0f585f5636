package indexer

import (
	"os"
	"path/filepath"
	"runtime"
)

// Roots is the set of directories a build traverses
type Roots struct {
	Apps  []string // start-menu style roots, links followed, no depth limit
	Files []string // user content roots, links not followed, depth bounded
}

// Merge returns r with the roots of other appended
func (r Roots) Merge(other Roots) Roots {
	return Roots{
		Apps:  append(append([]string{}, r.Apps...), other.Apps...),
		Files: append(append([]string{}, r.Files...), other.Files...),
	}
}

// DefaultRoots returns the platform's start-menu and user content folders.
// Folders that cannot be located are left out; missing ones are skipped
// later by the build.
func DefaultRoots() Roots {
	home, _ := os.UserHomeDir()

	var roots Roots
	if runtime.GOOS == "windows" {
		startMenu := filepath.Join("Microsoft", "Windows", "Start Menu", "Programs")
		if appData := os.Getenv("APPDATA"); appData != "" {
			roots.Apps = append(roots.Apps, filepath.Join(appData, startMenu))
		}
		programData := os.Getenv("ProgramData")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		roots.Apps = append(roots.Apps, filepath.Join(programData, startMenu))
	} else {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" && home != "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		if dataHome != "" {
			roots.Apps = append(roots.Apps, filepath.Join(dataHome, "applications"))
		}
		roots.Apps = append(roots.Apps,
			"/usr/share/applications",
			"/usr/local/share/applications",
		)
	}

	if home != "" {
		for _, dir := range []string{"Documents", "Downloads", "Desktop", "Pictures", "Videos", "Music"} {
			roots.Files = append(roots.Files, filepath.Join(home, dir))
		}
	}
	return roots
}
