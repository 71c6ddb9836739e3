// Package telemetry provides the engine's observability services:
// structured logging via zerolog, Prometheus metrics for operations and
// install steps, OpenTelemetry tracing, and an in-process event stream.
// Logging is always on; the other services default off and are enabled
// through Config.
package telemetry
