package engine

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/archive"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/index"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/integrity"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/resolver"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/state"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/telemetry"
)

// Install resolves the given specs and executes the install plan. The
// journal is saved after every published step, so a failure mid-plan
// leaves the store and journal agreeing about everything already
// published; the failing step itself leaves at most a .tmp directory.
func (e *Engine) Install(ctx context.Context, specs []Spec) error {
	if len(specs) == 0 {
		return operr.NewError(operr.KindInvalidArguments, "no packages given", nil)
	}
	done := e.beginOp(ctx, "install", specs[0].Name, specs[0].Version)
	err := e.withLock(func() error {
		return e.installLocked(ctx, specs)
	})
	done(err)
	return err
}

func (e *Engine) installLocked(ctx context.Context, specs []Spec) error {
	doc, err := e.loadIndex()
	if err != nil {
		return err
	}
	journal, err := e.loadJournal()
	if err != nil {
		return err
	}

	roots := make([]resolver.Root, len(specs))
	for i, s := range specs {
		roots[i] = resolver.Root{Package: s.Name, Requirement: s.Requirement()}
	}
	plan, err := resolver.ResolveAll(doc, roots)
	if err != nil {
		return err
	}
	log.Debug().Int("steps", len(plan)).Msg("install plan resolved")

	for _, step := range plan {
		if err := e.installStep(ctx, doc, journal, step); err != nil {
			return err
		}
	}
	if e.Metrics != nil {
		e.Metrics.SetInstalledPackages(journal.Len())
	}
	return nil
}

// installStep runs the install protocol for one (package, version) pair.
func (e *Engine) installStep(ctx context.Context, doc *index.Document, journal *state.Journal, step resolver.Step) error {
	pkg, ver := step.Package, step.Version

	// Already installed at exactly this version: nothing to do.
	if _, ok := journal.Entry(pkg, ver); ok {
		if _, err := os.Stat(e.Paths.VersionDir(pkg, ver)); err == nil {
			e.printf("%s=%s already installed", pkg, ver)
			return nil
		}
	}

	rec, err := doc.Record(pkg, ver)
	if err != nil {
		return err
	}

	e.emitStep(telemetry.EventStepStarted, pkg, ver, "installing")
	if err := e.publishVersion(ctx, rec, journal, pkg, ver); err != nil {
		e.emitStep(telemetry.EventStepFailed, pkg, ver, err.Error())
		if e.Metrics != nil {
			e.Metrics.StepExecuted("error")
		}
		return err
	}
	e.emitStep(telemetry.EventStepCompleted, pkg, ver, "published")
	if e.Metrics != nil {
		e.Metrics.StepExecuted("ok")
	}
	e.printf("installed %s=%s", pkg, ver)
	return nil
}

// publishVersion performs steps 4b-4j of the install protocol. Failure
// anywhere leaves at most a .tmp directory behind; nothing under the
// final version name, the current link or the journal changes until the
// atomic publish succeeds.
func (e *Engine) publishVersion(ctx context.Context, rec *index.Record, journal *state.Journal, pkg, ver string) error {
	// 4b: reuse a cached archive or invoke the downloader.
	archivePath := e.Paths.CachedArchive(pkg, ver)
	if err := os.MkdirAll(e.Paths.CacheRoot, 0o755); err != nil {
		return operr.NewError(operr.KindDownload, "creating cache dir", err)
	}
	if _, err := os.Stat(archivePath); err != nil {
		start := time.Now()
		if err := e.Fetcher.Fetch(ctx, rec.URL, archivePath); err != nil {
			if e.Metrics != nil {
				e.Metrics.DownloadCompleted("error", 0)
			}
			return err
		}
		if e.Metrics != nil {
			var size int64
			if fi, statErr := os.Stat(archivePath); statErr == nil {
				size = fi.Size()
			}
			e.Metrics.DownloadCompleted("ok", size)
			e.Metrics.StepPhase("download", time.Since(start))
		}
	} else {
		log.Debug().Str("archive", archivePath).Msg("reusing cached archive")
	}

	// 4c: verify the archive digest; a corrupt cache entry is deleted
	// before the error surfaces.
	if rec.SHA256 != "" {
		if err := integrity.Verify(archivePath, rec.SHA256); err != nil {
			os.Remove(archivePath)
			return err
		}
	}

	// 4d: stage into the .tmp sibling, removing any stale occurrence
	// from an interrupted run.
	tmpDir := e.Paths.TmpVersionDir(pkg, ver)
	if err := os.RemoveAll(tmpDir); err != nil {
		return operr.NewError(operr.KindExtractionFailed, "clearing stale staging dir", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return operr.NewError(operr.KindExtractionFailed, "creating staging dir", err)
	}
	if err := archive.Extract(ctx, e.Runner, archivePath, tmpDir); err != nil {
		return err
	}

	// 4e: the manifest must be present and sane.
	m, err := manifest.Load(tmpDir)
	if err != nil {
		return err
	}

	// 4f: run the install commands inside the sandbox.
	if err := e.Sandbox.Install(ctx, tmpDir, m); err != nil {
		return err
	}

	// 4g: atomic publish. A version directory that exists without a
	// journal entry is debris from an interrupted run and is replaced.
	finalDir := e.Paths.VersionDir(pkg, ver)
	if err := os.RemoveAll(finalDir); err != nil {
		return operr.NewError(operr.KindAtomicPublishFailed, "clearing prior version dir", err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return operr.NewError(operr.KindAtomicPublishFailed, "publishing version dir", err).
			WithPackage(pkg).WithVersion(ver)
	}

	// 4h: repoint the current link.
	if err := e.setCurrent(pkg, ver); err != nil {
		return err
	}

	// 4i: launcher scripts for every declared binary.
	for _, bin := range m.Bins {
		if err := e.writeLauncher(bin, pkg); err != nil {
			return err
		}
	}

	// 4j + save: record and persist, keeping store and journal agreed.
	journal.Record(pkg, ver, rec.SHA256, false)
	if err := journal.SaveAtomic(e.Paths.Journal); err != nil {
		return err
	}
	e.emitStep(telemetry.EventVersionPublished, pkg, ver, "current")
	return nil
}

// setCurrent atomically repoints <store>/<pkg>/current at ver.
func (e *Engine) setCurrent(pkg, ver string) error {
	link := e.Paths.CurrentLink(pkg)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return operr.NewError(operr.KindAtomicPublishFailed, "unlinking current", err).WithPackage(pkg)
	}
	if err := os.Symlink(ver, link); err != nil {
		return operr.NewError(operr.KindAtomicPublishFailed, "linking current", err).
			WithPackage(pkg).WithVersion(ver)
	}
	return nil
}

// currentVersion reads the current link's target, or "" when absent.
func (e *Engine) currentVersion(pkg string) string {
	target, err := os.Readlink(e.Paths.CurrentLink(pkg))
	if err != nil {
		return ""
	}
	return target
}

func (e *Engine) emitStep(typ, pkg, ver, msg string) {
	if e.Events == nil {
		return
	}
	e.Events.Publish(telemetry.Event{Type: typ, Package: pkg, Version: ver, Message: msg})
}
