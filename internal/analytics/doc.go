// Package analytics provides the telemetry handle scoped to a backend App.
// Events are emitted as OpenTelemetry log records and counted with OpenTelemetry
// metrics; both are exported over OTLP when an endpoint is configured.
package analytics
