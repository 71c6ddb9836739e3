package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/index"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/integrity"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/resolver"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/state"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/version"
)

// Switch atomically repoints the current link to an already-installed
// version. Apart from install, which points current at the version it
// publishes, and remove, which unlinks a current link naming a removed
// version, it is the only operation that changes current.
func (e *Engine) Switch(ctx context.Context, pkg, ver string) error {
	done := e.beginOp(ctx, "switch", pkg, ver)
	err := e.withLock(func() error {
		journal, err := e.loadJournal()
		if err != nil {
			return err
		}
		if !journal.Has(pkg) {
			return operr.NewError(operr.KindPackageNotInstalled, "package is not installed", nil).
				WithPackage(pkg)
		}
		if _, ok := journal.Entry(pkg, ver); !ok {
			return operr.NewError(operr.KindVersionNotFound, "version is not installed", nil).
				WithPackage(pkg).WithVersion(ver)
		}
		if err := e.setCurrent(pkg, ver); err != nil {
			return err
		}
		e.printf("%s current -> %s", pkg, ver)
		return nil
	})
	done(err)
	return err
}

// Pin sets the pin flag, suppressing automatic update of that version.
func (e *Engine) Pin(ctx context.Context, pkg, ver string) error {
	return e.setPin(ctx, "pin", pkg, ver, true)
}

// Unpin clears the pin flag on the currently published version.
func (e *Engine) Unpin(ctx context.Context, pkg string) error {
	ver := e.currentVersion(pkg)
	if ver == "" {
		return operr.NewError(operr.KindPackageNotInstalled, "no published version to unpin", nil).
			WithPackage(pkg)
	}
	return e.setPin(ctx, "unpin", pkg, ver, false)
}

func (e *Engine) setPin(ctx context.Context, op, pkg, ver string, pin bool) error {
	done := e.beginOp(ctx, op, pkg, ver)
	err := e.withLock(func() error {
		journal, err := e.loadJournal()
		if err != nil {
			return err
		}
		if !journal.SetPin(pkg, ver, pin) {
			if !journal.Has(pkg) {
				return operr.NewError(operr.KindPackageNotInstalled, "package is not installed", nil).
					WithPackage(pkg)
			}
			return operr.NewError(operr.KindVersionNotFound, "version is not installed", nil).
				WithPackage(pkg).WithVersion(ver)
		}
		return journal.SaveAtomic(e.Paths.Journal)
	})
	done(err)
	return err
}

// OutdatedEntry is one row of the outdated report.
type OutdatedEntry struct {
	Package string
	Current string
	Latest  string
	Pinned  bool
}

// Outdated diffs the journal's current versions against the index
// maxima. Read-only: no lock is taken.
func (e *Engine) Outdated(ctx context.Context) ([]OutdatedEntry, error) {
	doc, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	journal, err := e.loadJournal()
	if err != nil {
		return nil, err
	}

	var out []OutdatedEntry
	for _, pkg := range journal.Packages() {
		current := e.installedCurrent(journal, pkg)
		entry, err := doc.Entry(pkg)
		if err != nil {
			continue
		}
		latest := entry.Latest()
		if latest == nil || version.Compare(latest.Version, current) <= 0 {
			continue
		}
		rec, _ := journal.Entry(pkg, current)
		out = append(out, OutdatedEntry{
			Package: pkg,
			Current: current,
			Latest:  latest.Version,
			Pinned:  rec.Pin,
		})
	}
	return out, nil
}

// installedCurrent resolves the version update decisions run against:
// the current link's target, falling back to the maximum installed
// version when the link is missing.
func (e *Engine) installedCurrent(journal *state.Journal, pkg string) string {
	if cur := e.currentVersion(pkg); cur != "" {
		return cur
	}
	return version.Max(journal.InstalledVersions(pkg))
}

// Verify checks the published version of a package against the digest
// recorded at install time: the store directory must hold a manifest
// agreeing with the journal, and the cached archive, when it has not
// been pruned, must still hash to the recorded digest.
func (e *Engine) Verify(ctx context.Context, pkg string) error {
	done := e.beginOp(ctx, "verify", pkg, "")
	err := e.verify(pkg)
	done(err)
	return err
}

func (e *Engine) verify(pkg string) error {
	journal, err := e.loadJournal()
	if err != nil {
		return err
	}
	if !journal.Has(pkg) {
		return operr.NewError(operr.KindPackageNotInstalled, "package is not installed", nil).
			WithPackage(pkg)
	}
	ver := e.installedCurrent(journal, pkg)
	entry, ok := journal.Entry(pkg, ver)
	if !ok {
		return operr.NewError(operr.KindVerificationFailed,
			"current link names an unrecorded version", nil).WithPackage(pkg).WithVersion(ver)
	}

	m, err := manifest.Load(e.Paths.VersionDir(pkg, ver))
	if err != nil {
		return operr.NewError(operr.KindVerificationFailed, "stored manifest unreadable", err).
			WithPackage(pkg).WithVersion(ver)
	}
	if m.Name != pkg || m.Version != ver {
		return operr.NewError(operr.KindVerificationFailed,
			"stored manifest declares "+m.Name+"="+m.Version, nil).
			WithPackage(pkg).WithVersion(ver)
	}

	if entry.Digest == state.NoDigest {
		e.printf("%s=%s verified (no digest was published)", pkg, ver)
		return nil
	}
	archivePath := e.Paths.CachedArchive(pkg, ver)
	if _, err := os.Stat(archivePath); err != nil {
		e.printf("%s=%s verified (cached archive pruned, digest unchecked)", pkg, ver)
		return nil
	}
	if err := integrity.Verify(archivePath, entry.Digest); err != nil {
		return operr.NewError(operr.KindVerificationFailed,
			"cached archive no longer matches recorded digest", err).
			WithPackage(pkg).WithVersion(ver)
	}
	e.printf("%s=%s verified", pkg, ver)
	return nil
}

// Deps resolves and returns the install plan for a spec without touching
// the store. Read-only: no lock is taken.
func (e *Engine) Deps(ctx context.Context, spec Spec) (resolver.Plan, error) {
	doc, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(doc, spec.Name, spec.Requirement())
}

// SearchResult is one index match.
type SearchResult struct {
	Package     string
	Latest      string
	Description string
}

// Search scans the index for a case-insensitive substring match on the
// package name or description.
func (e *Engine) Search(ctx context.Context, query string) ([]SearchResult, error) {
	doc, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)

	var out []SearchResult
	for _, name := range doc.Names() {
		entry := doc.Packages[name]
		if !strings.Contains(strings.ToLower(name), needle) &&
			!strings.Contains(strings.ToLower(entry.Description), needle) {
			continue
		}
		latest := ""
		if rec := entry.Latest(); rec != nil {
			latest = rec.Version
		}
		out = append(out, SearchResult{Package: name, Latest: latest, Description: entry.Description})
	}
	return out, nil
}

// PackageInfo is the info report for one package.
type PackageInfo struct {
	Name      string
	Entry     *index.Entry
	Installed []string
	Current   string
}

// Info returns the index entry plus local install state of a package.
func (e *Engine) Info(ctx context.Context, pkg string) (*PackageInfo, error) {
	doc, err := e.loadIndex()
	if err != nil {
		return nil, err
	}
	entry, err := doc.Entry(pkg)
	if err != nil {
		return nil, err
	}
	journal, err := e.loadJournal()
	if err != nil {
		return nil, err
	}
	return &PackageInfo{
		Name:      pkg,
		Entry:     entry,
		Installed: journal.InstalledVersions(pkg),
		Current:   e.currentVersion(pkg),
	}, nil
}

// ListEntry is one row of the installed listing.
type ListEntry struct {
	Package   string
	Version   string
	Current   bool
	Pinned    bool
	Installed string
}

// List reports every installed version. Read-only: no lock is taken.
func (e *Engine) List(ctx context.Context) ([]ListEntry, error) {
	journal, err := e.loadJournal()
	if err != nil {
		return nil, err
	}

	var out []ListEntry
	for _, pkg := range journal.Packages() {
		current := e.currentVersion(pkg)
		for _, ver := range journal.InstalledVersions(pkg) {
			entry, _ := journal.Entry(pkg, ver)
			out = append(out, ListEntry{
				Package:   pkg,
				Version:   ver,
				Current:   ver == current,
				Pinned:    entry.Pin,
				Installed: entry.Timestamp,
			})
		}
	}
	return out, nil
}

// Clean empties the archive cache and prunes stale .tmp staging
// directories left behind by interrupted installs.
func (e *Engine) Clean(ctx context.Context) error {
	done := e.beginOp(ctx, "clean", "", "")
	err := e.withLock(func() error {
		removed := 0
		entries, readErr := os.ReadDir(e.Paths.CacheRoot)
		if readErr == nil {
			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(e.Paths.CacheRoot, entry.Name())); err != nil {
					return operr.NewError(operr.KindPermission, "pruning cache", err)
				}
				removed++
			}
		}

		pkgs, readErr := os.ReadDir(e.Paths.StoreRoot)
		if readErr == nil {
			for _, pkg := range pkgs {
				if !pkg.IsDir() {
					continue
				}
				vers, err := os.ReadDir(filepath.Join(e.Paths.StoreRoot, pkg.Name()))
				if err != nil {
					continue
				}
				for _, v := range vers {
					if !strings.HasSuffix(v.Name(), ".tmp") {
						continue
					}
					stale := filepath.Join(e.Paths.StoreRoot, pkg.Name(), v.Name())
					if err := os.RemoveAll(stale); err != nil {
						return operr.NewError(operr.KindPermission, "pruning stale staging dir", err)
					}
					removed++
				}
			}
		}
		e.printf("cleaned %d entries", removed)
		return nil
	})
	done(err)
	return err
}
