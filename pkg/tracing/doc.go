// Package tracing wires OpenTelemetry for binaries driving state machines.
// Init installs a global SDK tracer provider; its Tracer feeds
// statemachine.WithTracer so every Fire call becomes a span.
package tracing
