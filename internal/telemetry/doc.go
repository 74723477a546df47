// Package telemetry provides the process-wide OpenTelemetry tracing session
// used to export pipeline spans.
//
// Spans are exported over OTLP HTTP to a Langfuse-compatible endpoint with
// batching disabled, so a short-lived interactive session does not lose its
// final spans on exit.
package telemetry
