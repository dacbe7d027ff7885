// Package prometheus renders authcore metrics in Prometheus text
// exposition format.
//
// The exporter reads [authcore.Engine.MetricsSnapshot] on each scrape and
// writes the fixed metric set defined in internaldefs. It depends on no
// Prometheus client library; the exposition format is small enough to
// write directly and the engine's counters need no registry.
package prometheus
