// Package engine implements the package lifecycle controller: install,
// remove, switch, update, upgrade, verify, build and run, together with
// the atomic-publish protocol and launcher-script management.
package engine

import (
	"os"
	"path/filepath"
)

// IndexURL is the fixed location of the remote package index.
const IndexURL = "https://pkgs.hackeros.org/index.yaml"

// UpgradeBaseURL hosts the engine's own release artifacts: the
// latest-version record and the engine and sandbox helper binaries.
const UpgradeBaseURL = "https://pkgs.hackeros.org/hpm"

// Paths collects the engine's well-known filesystem locations. The
// defaults live under /usr/lib/hpm and /var/lib/hpm, with the archive
// cache in /var/cache/hpm and launchers in /usr/bin; setting HPM_ROOT
// re-roots everything, which is how tests isolate themselves.
type Paths struct {
	// StoreRoot holds unpacked artifacts at <store>/<package>/<version>.
	StoreRoot string

	// CacheRoot holds downloaded archives keyed by <package>-<version>.
	CacheRoot string

	// IndexCache is the local copy of the remote index.
	IndexCache string

	// Journal is the state journal file.
	Journal string

	// LockFile serializes mutating operations.
	LockFile string

	// HistoryDB is the sqlite operation history.
	HistoryDB string

	// BinDir receives launcher scripts.
	BinDir string

	// VersionFile records the locally installed engine version.
	VersionFile string

	// EnginePath and HelperPath are the canonical binary locations
	// written by the upgrade path.
	EnginePath string
	HelperPath string
}

// DefaultPaths returns the conventional locations, re-rooted under
// HPM_ROOT when that variable is set.
func DefaultPaths() Paths {
	root := os.Getenv("HPM_ROOT")
	return Paths{
		StoreRoot:   filepath.Join(root, "/usr/lib/hpm/store"),
		CacheRoot:   filepath.Join(root, "/var/cache/hpm"),
		IndexCache:  filepath.Join(root, "/var/lib/hpm/index.yaml"),
		Journal:     filepath.Join(root, "/var/lib/hpm/state.yaml"),
		LockFile:    filepath.Join(root, "/var/lib/hpm/lock"),
		HistoryDB:   filepath.Join(root, "/var/lib/hpm/history.db"),
		BinDir:      filepath.Join(root, "/usr/bin"),
		VersionFile: filepath.Join(root, "/var/lib/hpm/version"),
		EnginePath:  filepath.Join(root, "/usr/lib/hpm/hpm"),
		HelperPath:  filepath.Join(root, "/usr/lib/hpm/hpm-sandbox"),
	}
}

// PackageDir is <store>/<package>.
func (p Paths) PackageDir(pkg string) string {
	return filepath.Join(p.StoreRoot, pkg)
}

// VersionDir is <store>/<package>/<version>.
func (p Paths) VersionDir(pkg, version string) string {
	return filepath.Join(p.StoreRoot, pkg, version)
}

// TmpVersionDir is the staging sibling renamed into place on publish.
func (p Paths) TmpVersionDir(pkg, version string) string {
	return p.VersionDir(pkg, version) + ".tmp"
}

// CurrentLink is the symbolic link naming the published version.
func (p Paths) CurrentLink(pkg string) string {
	return filepath.Join(p.StoreRoot, pkg, "current")
}

// CachedArchive is the cache location for one artifact.
func (p Paths) CachedArchive(pkg, version string) string {
	return filepath.Join(p.CacheRoot, pkg+"-"+version+".archive")
}

// LauncherPath is the launcher script location for a binary name.
func (p Paths) LauncherPath(bin string) string {
	return filepath.Join(p.BinDir, bin)
}
