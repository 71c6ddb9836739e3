// Package commands wires the hpm command-line surface over the
// lifecycle engine.
package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/engine"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/history"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/telemetry"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/ui"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool

	// engineVersion is the build version, for upgrade comparisons.
	engineVersion string

	// metricsPath is where HPM_METRICS asked for the metrics dump.
	metricsPath string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	engineVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hpm",
		Short: "Hacker Package Manager - the HackerOS package lifecycle engine",
		Long: `hpm resolves dependency graphs from the HackerOS package index,
fetches and verifies versioned artifacts, unpacks them into a
per-version store, runs install actions in a namespace-isolated
sandbox, and publishes stable launcher scripts.

Multiple versions of a package install side by side; "switch" repoints
the published version atomically, and "pin" holds a version across
updates.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newRefreshCommand())
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newRemoveCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newSwitchCommand())
	rootCmd.AddCommand(newUpgradeCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newPinCommand())
	rootCmd.AddCommand(newUnpinCommand())
	rootCmd.AddCommand(newOutdatedCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// newEngine assembles the lifecycle engine for one command invocation.
// The operation history is best-effort: a store that cannot be opened
// only loses history, never the operation. The telemetry sinks are
// env-gated: HPM_TRACE names a trace exporter (stdout, otlp),
// HPM_METRICS names a file that receives the gathered metrics in text
// exposition format when the command finishes, and HPM_EVENTS mirrors
// the engine's event stream onto the log.
func newEngine(ctx context.Context) *engine.Engine {
	e := engine.New(engine.DefaultPaths())
	if hist, err := history.Open(ctx, e.Paths.HistoryDB); err == nil {
		e.History = hist
	}

	cfg := telemetry.DefaultConfig(engineVersion)
	if exporter := os.Getenv("HPM_TRACE"); exporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = exporter
		if tracer, err := telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion); err == nil {
			e.Tracer = tracer
		}
	}
	if metricsPath = os.Getenv("HPM_METRICS"); metricsPath != "" {
		cfg.Metrics.Enabled = true
		if metrics, err := telemetry.NewMetrics(cfg.Metrics); err == nil {
			e.Metrics = metrics
		}
	}
	if os.Getenv("HPM_EVENTS") != "" {
		cfg.Events.Enabled = true
		e.Events = telemetry.NewEventPublisher(cfg.Events)
		e.Events.Subscribe(func(event telemetry.Event) {
			log.Info().
				Str("type", event.Type).
				Str("package", event.Package).
				Str("version", event.Version).
				Msg(event.Message)
		})
	}
	return e
}

func closeEngine(e *engine.Engine) {
	if e.Events != nil {
		e.Events.Close()
	}
	if e.Metrics != nil && metricsPath != "" {
		writeMetricsFile(e.Metrics, metricsPath)
	}
	if e.Tracer != nil {
		_ = e.Tracer.Shutdown(context.Background())
	}
	if e.History != nil {
		e.History.Close()
	}
}

// writeMetricsFile dumps the registry in Prometheus text exposition
// format, the textfile-collector convention. Best-effort, like the
// other telemetry sinks.
func writeMetricsFile(m *telemetry.Metrics, path string) {
	families, err := m.Registry().Gather()
	if err != nil {
		log.Debug().Err(err).Msg("gathering metrics")
		return
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			log.Debug().Err(err).Msg("encoding metrics")
			return
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("writing metrics file")
	}
}

// PrintError writes the one-line error message every failed command
// exits with.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, ui.Failure.Render("error:"), errorMessage(err))
}

// ExitCode maps an error to the process exit code: 0 success, 1 any
// failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// errorMessage maps each error kind of the closed sum to its one-line
// human-readable form.
func errorMessage(err error) string {
	var op *operr.OpError
	if !errors.As(err, &op) {
		return err.Error()
	}
	switch op.Kind {
	case operr.KindInvalidArguments:
		return "invalid arguments: " + op.Error()
	case operr.KindIndexLoad:
		return "cannot load package index: " + op.Error()
	case operr.KindJournalLoad:
		return "cannot load state journal: " + op.Error()
	case operr.KindLockHeld:
		return "another hpm operation is running: " + op.Error()
	case operr.KindDownload:
		return "download failed: " + op.Error()
	case operr.KindChecksumMismatch:
		return "checksum mismatch: " + op.Error()
	case operr.KindExtractionFailed:
		return "extraction failed: " + op.Error()
	case operr.KindSandboxInstallFailed:
		return "sandboxed install failed: " + op.Error()
	case operr.KindSandboxRunFailed:
		return "sandboxed run failed: " + op.Error()
	case operr.KindManifestInvalid:
		return "invalid package manifest: " + op.Error()
	case operr.KindPackageNotFound:
		return "package not found: " + op.Error()
	case operr.KindPackageNotInstalled:
		return "package not installed: " + op.Error()
	case operr.KindVersionNotFound:
		return "version not found: " + op.Error()
	case operr.KindVersionConflict:
		return "version conflict: " + op.Error()
	case operr.KindDependencyCycle:
		return "dependency cycle: " + op.Error()
	case operr.KindNoSatisfyingVersion:
		return "no satisfying version: " + op.Error()
	case operr.KindAtomicPublishFailed:
		return "publish failed: " + op.Error()
	case operr.KindPermission:
		return "permission denied: " + op.Error()
	case operr.KindVerificationFailed:
		return "verification failed: " + op.Error()
	case operr.KindSpawn:
		return "cannot spawn helper: " + op.Error()
	case operr.KindWait:
		return "helper died: " + op.Error()
	default:
		return op.Error()
	}
}
