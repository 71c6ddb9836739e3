package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/resolver"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/version"
)

// UpdateResult reports what an update pass changed.
type UpdateResult struct {
	Updated   int
	Unchanged int
}

// Update walks every installed package and, where the index offers a
// strictly newer version and the current one is not pinned, removes the
// current version and installs the new one — all within a single lock.
func (e *Engine) Update(ctx context.Context) (UpdateResult, error) {
	var res UpdateResult
	done := e.beginOp(ctx, "update", "", "")
	err := e.withLock(func() error {
		var lockErr error
		res, lockErr = e.updateLocked(ctx)
		return lockErr
	})
	done(err)
	if err == nil {
		e.printf("updated %d, current %d", res.Updated, res.Unchanged)
	}
	return res, err
}

func (e *Engine) updateLocked(ctx context.Context) (UpdateResult, error) {
	var res UpdateResult

	doc, err := e.loadIndex()
	if err != nil {
		return res, err
	}
	journal, err := e.loadJournal()
	if err != nil {
		return res, err
	}

	for _, pkg := range journal.Packages() {
		current := e.installedCurrent(journal, pkg)
		entry, err := doc.Entry(pkg)
		if err != nil {
			// Locally installed but no longer indexed: leave it alone.
			log.Debug().Str("package", pkg).Msg("not in index, skipping update")
			res.Unchanged++
			continue
		}
		latest := entry.Latest()
		if latest == nil || version.Compare(latest.Version, current) <= 0 {
			res.Unchanged++
			continue
		}
		if rec, ok := journal.Entry(pkg, current); ok && rec.Pin {
			log.Info().Str("package", pkg).Str("version", current).Msg("pinned, skipping update")
			res.Unchanged++
			continue
		}

		if err := e.removeLocked(ctx, pkg, current); err != nil {
			return res, err
		}
		// removeLocked rewrote the journal; reload before installing.
		journal, err = e.loadJournal()
		if err != nil {
			return res, err
		}
		// The newer version may pull in dependencies of its own.
		plan, err := resolver.Resolve(doc, pkg, "="+latest.Version)
		if err != nil {
			return res, err
		}
		for _, step := range plan {
			if err := e.installStep(ctx, doc, journal, step); err != nil {
				return res, err
			}
		}
		res.Updated++
	}
	return res, nil
}
