// Package executor spawns external helper processes — the sandbox tool,
// the archive extractor and the downloader — and reports their exit
// status. It has no retry policy; callers decide what a failure means.
package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/rs/zerolog/log"
)

// Command describes a single external process invocation. The first
// element of Argv is the executable: resolved against PATH when it
// contains no path separator, used verbatim otherwise.
type Command struct {
	Argv []string

	// Dir is the working directory for the child; empty inherits ours.
	Dir string

	// Env entries are appended to the inherited environment.
	Env []string

	// Stdout and Stderr default to the calling process's streams.
	Stdout io.Writer
	Stderr io.Writer

	// Stdin defaults to no input.
	Stdin io.Reader
}

// Result reports how the child terminated.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands. The interface exists so the engine
// can be driven against a recorded runner in tests.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// System is the Runner backed by the host's fork/exec.
type System struct{}

// Run spawns the command and waits for normal termination.
//
// A failure to resolve or start the executable is a spawn error;
// termination by signal is a wait error. A child that exits non-zero is
// not an error here — the exit status is reported in Result and the
// caller decides.
func (System) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, operr.NewError(operr.KindSpawn, "empty argument vector", nil)
	}

	path := cmd.Argv[0]
	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return Result{}, operr.NewError(operr.KindSpawn, "executable not found: "+path, err)
		}
		path = resolved
	}

	c := exec.CommandContext(ctx, path, cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	log.Debug().Strs("argv", cmd.Argv).Str("dir", cmd.Dir).Msg("spawning helper")

	start := time.Now()
	err := c.Run()
	res := Result{Duration: time.Since(start)}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() < 0 {
			return res, operr.NewError(operr.KindWait, "helper terminated by signal", err)
		}
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, operr.NewError(operr.KindSpawn, "failed to start "+cmd.Argv[0], err)
}
