// Package internaldefs holds the stable metric names shared by the exporter
// implementations, so the Prometheus and OTel exporters always agree on
// names, help text, and histogram bucket boundaries.
package internaldefs
