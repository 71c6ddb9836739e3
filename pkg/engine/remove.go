package engine

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/state"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/telemetry"
)

// Remove deletes installed versions of a package. An empty version
// targets every recorded version. Confirmation is the caller's concern;
// by the time Remove runs the decision has been made.
func (e *Engine) Remove(ctx context.Context, pkg, ver string) error {
	done := e.beginOp(ctx, "remove", pkg, ver)
	err := e.withLock(func() error {
		return e.removeLocked(ctx, pkg, ver)
	})
	done(err)
	return err
}

func (e *Engine) removeLocked(_ context.Context, pkg, ver string) error {
	journal, err := e.loadJournal()
	if err != nil {
		return err
	}
	if !journal.Has(pkg) {
		return operr.NewError(operr.KindPackageNotInstalled, "package is not installed", nil).
			WithPackage(pkg)
	}

	var targets []string
	if ver != "" {
		if _, ok := journal.Entry(pkg, ver); !ok {
			return operr.NewError(operr.KindVersionNotFound, "version is not installed", nil).
				WithPackage(pkg).WithVersion(ver)
		}
		targets = []string{ver}
	} else {
		targets = journal.InstalledVersions(pkg)
	}

	current := e.currentVersion(pkg)
	currentRemoved := false

	for _, target := range targets {
		if err := e.removeVersion(journal, pkg, target); err != nil {
			return err
		}
		if target == current {
			currentRemoved = true
		}
		e.printf("removed %s=%s", pkg, target)
	}

	if currentRemoved {
		if err := os.Remove(e.Paths.CurrentLink(pkg)); err != nil && !os.IsNotExist(err) {
			return operr.NewError(operr.KindAtomicPublishFailed, "unlinking current", err).
				WithPackage(pkg)
		}
	}

	// With the last version gone, the package's store shell goes too.
	if !journal.Has(pkg) {
		if err := os.RemoveAll(e.Paths.PackageDir(pkg)); err != nil {
			return operr.NewError(operr.KindPermission, "removing package dir", err).
				WithPackage(pkg)
		}
	}

	if err := journal.SaveAtomic(e.Paths.Journal); err != nil {
		return err
	}
	if e.Metrics != nil {
		e.Metrics.SetInstalledPackages(journal.Len())
	}
	return nil
}

// removeVersion drops one version: the journal entry, then launcher
// scripts it declared (unless a remaining version still declares them),
// then the artifact directory.
func (e *Engine) removeVersion(journal *state.Journal, pkg, ver string) error {
	dir := e.Paths.VersionDir(pkg, ver)

	var bins []string
	if m, err := manifest.Load(dir); err == nil {
		bins = m.Bins
	} else {
		log.Warn().Str("package", pkg).Str("version", ver).Err(err).
			Msg("artifact manifest unreadable during remove")
	}

	journal.Forget(pkg, ver)
	if len(bins) > 0 {
		if err := e.removeLaunchers(pkg, bins, journal.InstalledVersions(pkg)); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return operr.NewError(operr.KindPermission, "removing artifact dir", err).
			WithPackage(pkg).WithVersion(ver)
	}
	e.emitStep(telemetry.EventVersionRemoved, pkg, ver, "removed")
	return nil
}
