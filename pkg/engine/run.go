package engine

import (
	"context"
	"os"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// Run executes a declared binary of an installed package inside the
// sandbox and returns the propagated exit status. An explicit version in
// the spec selects that version's artifact without touching the current
// link; otherwise the current link decides. Read-only: no lock is taken.
func (e *Engine) Run(ctx context.Context, spec Spec, bin string, args []string) (int, error) {
	ver := spec.Version
	if ver == "" {
		ver = e.currentVersion(spec.Name)
		if ver == "" {
			return -1, operr.NewError(operr.KindPackageNotInstalled,
				"no published version to run", nil).WithPackage(spec.Name)
		}
	}

	dir := e.Paths.VersionDir(spec.Name, ver)
	if _, err := os.Stat(dir); err != nil {
		return -1, operr.NewError(operr.KindVersionNotFound, "version is not installed", err).
			WithPackage(spec.Name).WithVersion(ver)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return -1, err
	}
	declared := false
	for _, b := range m.Bins {
		if b == bin {
			declared = true
			break
		}
	}
	if !declared {
		return -1, operr.NewError(operr.KindInvalidArguments,
			"binary "+bin+" is not declared by the package", nil).
			WithPackage(spec.Name).WithVersion(ver)
	}

	return e.Sandbox.Run(ctx, dir, m, bin, args)
}
