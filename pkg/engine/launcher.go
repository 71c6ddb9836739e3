package engine

import (
	"os"
	"strings"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// launcherBody is the stable entry point published for a declared
// binary. It dispatches back into the engine's run path, which resolves
// the package's current link, so the script survives switches between
// versions unchanged.
func launcherBody(pkg, bin string) string {
	return "#!/bin/sh\nexec hpm run " + pkg + " " + bin + " \"$@\"\n"
}

// writeLauncher creates or overwrites the launcher script for bin.
// Collisions between packages declaring the same binary resolve by
// last-writer-wins and are not detected.
func (e *Engine) writeLauncher(bin, pkg string) error {
	if err := os.MkdirAll(e.Paths.BinDir, 0o755); err != nil {
		return operr.NewError(operr.KindPermission, "creating bin dir", err)
	}
	path := e.Paths.LauncherPath(bin)
	if err := os.WriteFile(path, []byte(launcherBody(pkg, bin)), 0o755); err != nil {
		return operr.NewError(operr.KindPermission, "writing launcher "+path, err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return operr.NewError(operr.KindPermission, "marking launcher executable", err)
	}
	return nil
}

// removeLaunchers deletes the launcher scripts for bins that no
// remaining version of the package still declares.
func (e *Engine) removeLaunchers(pkg string, bins []string, remainingVersions []string) error {
	still := map[string]bool{}
	for _, ver := range remainingVersions {
		m, err := manifest.Load(e.Paths.VersionDir(pkg, ver))
		if err != nil {
			continue
		}
		for _, b := range m.Bins {
			still[b] = true
		}
	}

	for _, bin := range bins {
		if still[bin] {
			continue
		}
		path := e.Paths.LauncherPath(bin)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		// Only remove scripts that still dispatch to this package;
		// another package may have overwritten the name since.
		if !strings.Contains(string(data), "hpm run "+pkg+" ") {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return operr.NewError(operr.KindPermission, "removing launcher "+path, err)
		}
	}
	return nil
}
