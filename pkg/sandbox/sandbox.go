// Package sandbox mediates every execution of third-party code through
// the external namespace-isolation helper. The helper is invoked as a
// program and trusted on its exit status; no namespace primitive is
// reimplemented here.
package sandbox

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/manifest"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// DefaultHelper is the helper executable name, resolved on PATH. The
// upgrade path installs it at /usr/lib/hpm/hpm-sandbox.
const DefaultHelper = "hpm-sandbox"

// MountPoint is the fixed in-sandbox location of the artifact root.
const MountPoint = "/app"

// systemDirs are bind-mounted read-only so shell utilities work inside
// the sandbox.
var systemDirs = []string{"/usr", "/lib", "/lib64", "/bin", "/etc"}

// x11Dir is the host graphics socket directory shared into graphical
// sandboxes.
const x11Dir = "/tmp/.X11-unix"

// Sandbox invokes the isolation helper.
type Sandbox struct {
	Helper string
	Runner executor.Runner
}

// New returns a sandbox using the default helper and the system runner.
func New() *Sandbox {
	return &Sandbox{Helper: DefaultHelper, Runner: executor.System{}}
}

// Install executes the manifest's install commands, joined with
// short-circuit AND under "sh -c", inside the sandbox rooted at dir. An
// empty command list reports success without spawning anything.
func (s *Sandbox) Install(ctx context.Context, dir string, m *manifest.Manifest) error {
	if len(m.InstallCommands) == 0 {
		log.Debug().Str("package", m.Name).Msg("no install commands")
		return nil
	}

	argv := s.helperArgs(dir, m.Sandbox)
	argv = append(argv, "sh", "-c", strings.Join(m.InstallCommands, " && "))

	res, err := s.Runner.Run(ctx, executor.Command{Argv: argv})
	if err != nil {
		return operr.NewError(operr.KindSandboxInstallFailed,
			"sandbox helper failed", err).WithPackage(m.Name).WithVersion(m.Version)
	}
	if res.ExitCode != 0 {
		return operr.NewError(operr.KindSandboxInstallFailed,
			"install script exited with status "+strconv.Itoa(res.ExitCode), nil).
			WithPackage(m.Name).WithVersion(m.Version)
	}
	return nil
}

// Run executes a declared binary at its fixed in-sandbox path with the
// caller's extra arguments and returns the propagated exit status.
func (s *Sandbox) Run(ctx context.Context, dir string, m *manifest.Manifest, bin string, args []string) (int, error) {
	argv := s.helperArgs(dir, m.Sandbox)
	argv = append(argv, MountPoint+"/"+bin)
	argv = append(argv, args...)

	res, err := s.Runner.Run(ctx, executor.Command{Argv: argv})
	if err != nil {
		return -1, operr.NewError(operr.KindSandboxRunFailed,
			"sandbox helper failed", err).WithPackage(m.Name)
	}
	return res.ExitCode, nil
}

// helperArgs maps the fixed default policy plus the manifest profile to
// the helper's argument vector.
func (s *Sandbox) helperArgs(dir string, p manifest.Profile) []string {
	argv := []string{s.Helper, "--unshare-all"}

	for _, sys := range systemDirs {
		argv = append(argv, "--ro-bind-try", sys, sys)
	}
	argv = append(argv, "--bind", dir, MountPoint, "--chdir", MountPoint)

	if p.Network {
		argv = append(argv, "--share-net")
	}
	if p.GUI {
		argv = append(argv, "--ro-bind-try", x11Dir, x11Dir, "--share-ipc")
		if display := os.Getenv("DISPLAY"); display != "" {
			argv = append(argv, "--setenv", "DISPLAY", display)
		}
	}
	if p.Device {
		argv = append(argv, "--dev-bind", "/dev", "/dev")
	}
	for _, extra := range p.Filesystem {
		argv = append(argv, "--bind", extra, extra)
	}
	return argv
}
