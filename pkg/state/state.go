// Package state persists the journal: the durable record of installed
// {package, version} pairs. The journal is loaded at the start of each
// locked operation and saved atomically before it ends (install saves
// after every published step); no in-memory copy survives across
// operations.
package state

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// NoDigest is recorded when the index published no digest for the
// accepted artifact.
const NoDigest = "none"

// InstalledEntry records one installed version of a package.
type InstalledEntry struct {
	// Digest is the archive digest used to accept the artifact, or the
	// NoDigest sentinel.
	Digest string `yaml:"digest"`

	// Timestamp is the install time in RFC 3339 form.
	Timestamp string `yaml:"timestamp"`

	// Pin suppresses automatic update of this version.
	Pin bool `yaml:"pin"`
}

// Journal maps package name to its installed versions.
type Journal struct {
	packages map[string]map[string]InstalledEntry
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{packages: map[string]map[string]InstalledEntry{}}
}

// Load reads the journal from path. An absent or empty file is an empty
// journal; a file that exists but does not parse is a JournalLoad error.
func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, operr.NewError(operr.KindJournalLoad, "reading journal "+path, err)
	}
	if len(data) == 0 {
		return New(), nil
	}

	var raw map[string]map[string]InstalledEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, operr.NewError(operr.KindJournalLoad, "parsing journal "+path, err)
	}
	if raw == nil {
		raw = map[string]map[string]InstalledEntry{}
	}
	return &Journal{packages: raw}, nil
}

// SaveAtomic serializes the journal and publishes it with the
// write-temp-then-rename pattern, so readers never observe a torn file.
func (j *Journal) SaveAtomic(path string) error {
	data, err := yaml.Marshal(j.packages)
	if err != nil {
		return operr.NewError(operr.KindJournalLoad, "serializing journal", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return operr.NewError(operr.KindJournalLoad, "creating journal dir", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return operr.NewError(operr.KindJournalLoad, "writing journal", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return operr.NewError(operr.KindJournalLoad, "publishing journal", err)
	}
	return nil
}

// Record writes an entry for {pkg, ver}. An empty digest records the
// NoDigest sentinel.
func (j *Journal) Record(pkg, ver, digest string, pin bool) {
	if digest == "" {
		digest = NoDigest
	}
	if j.packages[pkg] == nil {
		j.packages[pkg] = map[string]InstalledEntry{}
	}
	j.packages[pkg][ver] = InstalledEntry{
		Digest:    digest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Pin:       pin,
	}
}

// Forget removes the entry for {pkg, ver}; the package key disappears
// with its last version.
func (j *Journal) Forget(pkg, ver string) {
	vers, ok := j.packages[pkg]
	if !ok {
		return
	}
	delete(vers, ver)
	if len(vers) == 0 {
		delete(j.packages, pkg)
	}
}

// SetPin sets or clears the pin flag. It reports whether the entry
// exists.
func (j *Journal) SetPin(pkg, ver string, pin bool) bool {
	entry, ok := j.packages[pkg][ver]
	if !ok {
		return false
	}
	entry.Pin = pin
	j.packages[pkg][ver] = entry
	return true
}

// Entry returns the entry for {pkg, ver}.
func (j *Journal) Entry(pkg, ver string) (InstalledEntry, bool) {
	e, ok := j.packages[pkg][ver]
	return e, ok
}

// Has reports whether the package has any installed version.
func (j *Journal) Has(pkg string) bool {
	return len(j.packages[pkg]) > 0
}

// InstalledVersions returns the recorded versions of pkg in sorted
// order.
func (j *Journal) InstalledVersions(pkg string) []string {
	vers := make([]string, 0, len(j.packages[pkg]))
	for v := range j.packages[pkg] {
		vers = append(vers, v)
	}
	sort.Strings(vers)
	return vers
}

// Packages returns the recorded package names in sorted order.
func (j *Journal) Packages() []string {
	names := make([]string, 0, len(j.packages))
	for name := range j.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of recorded packages.
func (j *Journal) Len() int {
	return len(j.packages)
}
