// Package otel exports authcore metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and
// an Int64ObservableGauge per histogram bucket. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection cycle; the engine's
// hot path never touches OTel instruments directly.
//
// Callers own the MeterProvider; this package only consumes a Meter.
package otel
