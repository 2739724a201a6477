// Package otel binds credstore counters and the store latency histogram to
// OpenTelemetry observable instruments. The caller owns the MeterProvider.
package otel
