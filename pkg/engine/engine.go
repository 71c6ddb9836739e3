package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/fetch"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/history"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/index"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/lockfile"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/sandbox"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/state"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/telemetry"
)

// Engine is the lifecycle controller. It is the sole owner of the store
// and journal while it holds the lock; the index is read-only during
// operations.
type Engine struct {
	Paths   Paths
	Runner  executor.Runner
	Sandbox *sandbox.Sandbox
	Fetcher *fetch.Fetcher

	// History is the optional operation log; nil disables it, and a
	// history write failure never fails the operation it describes.
	History *history.Store

	// Metrics, Tracer and Events are optional observability sinks.
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
	Events  *telemetry.EventPublisher

	// Out receives user-facing output lines.
	Out io.Writer
}

// New assembles an engine over the given paths with the system runner.
// The sandbox helper is looked up on PATH, falling back to the canonical
// location the upgrade path writes it to.
func New(paths Paths) *Engine {
	runner := executor.System{}
	helper := sandbox.DefaultHelper
	if _, err := exec.LookPath(helper); err != nil {
		helper = paths.HelperPath
	}
	return &Engine{
		Paths:   paths,
		Runner:  runner,
		Sandbox: &sandbox.Sandbox{Helper: helper, Runner: runner},
		Fetcher: &fetch.Fetcher{Runner: runner},
		Out:     os.Stdout,
	}
}

// Spec is one command-line package spec: a name with an optional exact
// version ("name" or "name=version").
type Spec struct {
	Name    string
	Version string
}

// ParseSpec parses "name" or "name=version".
func ParseSpec(s string) (Spec, error) {
	name, ver, _ := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	ver = strings.TrimSpace(ver)
	if name == "" {
		return Spec{}, operr.NewError(operr.KindInvalidArguments, "empty package spec", nil)
	}
	return Spec{Name: name, Version: ver}, nil
}

// Requirement renders the spec as a resolver requirement string.
func (s Spec) Requirement() string {
	if s.Version == "" {
		return ""
	}
	return "=" + s.Version
}

func (s Spec) String() string {
	if s.Version == "" {
		return s.Name
	}
	return s.Name + "=" + s.Version
}

// withLock runs fn holding the process-wide lock, releasing it on every
// exit path.
func (e *Engine) withLock(fn func() error) error {
	lock, err := lockfile.Acquire(e.Paths.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}

// loadIndex reads the cached index document.
func (e *Engine) loadIndex() (*index.Document, error) {
	return index.LoadFile(e.Paths.IndexCache)
}

// loadJournal reads the journal.
func (e *Engine) loadJournal() (*state.Journal, error) {
	return state.Load(e.Paths.Journal)
}

// Refresh fetches the remote index and atomically replaces the cache.
func (e *Engine) Refresh(ctx context.Context) error {
	done := e.beginOp(ctx, "refresh", "", "")
	_, err := index.Refresh(ctx, IndexURL, e.Paths.IndexCache)
	done(err)
	return err
}

// printf writes a user-facing line.
func (e *Engine) printf(format string, args ...interface{}) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format+"\n", args...)
	}
}

// beginOp records an operation in history, metrics and the event
// stream. The returned func finishes the records; it never fails the
// surrounding operation.
func (e *Engine) beginOp(ctx context.Context, op, pkg, ver string) func(error) {
	start := time.Now()
	var span trace.Span
	if e.Tracer != nil {
		_, span = e.Tracer.StartOperation(ctx, op)
	}
	var histID string
	if e.History != nil {
		if id, err := e.History.Begin(ctx, op, pkg, ver); err == nil {
			histID = id
		}
	}
	if e.Metrics != nil {
		e.Metrics.OperationStarted(op)
	}
	if e.Events != nil {
		e.Events.Publish(telemetry.Event{
			Type:    telemetry.EventOperationStarted,
			Package: pkg,
			Version: ver,
			Message: op,
		})
	}

	return func(opErr error) {
		if span != nil {
			telemetry.EndSpan(span, opErr)
		}
		if e.History != nil && histID != "" {
			_ = e.History.Finish(ctx, histID, opErr)
		}
		if e.Metrics != nil {
			status := "ok"
			if opErr != nil {
				status = "error"
				e.Metrics.ErrorObserved(string(operr.KindOf(opErr)))
			}
			e.Metrics.OperationCompleted(op, status, time.Since(start))
		}
		if e.Events != nil {
			typ := telemetry.EventOperationCompleted
			msg := op
			if opErr != nil {
				typ = telemetry.EventOperationFailed
				msg = op + ": " + opErr.Error()
			}
			e.Events.Publish(telemetry.Event{
				Type:    typ,
				Package: pkg,
				Version: ver,
				Message: msg,
			})
		}
	}
}
