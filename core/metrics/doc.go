// Package metrics defines interfaces and implementations for collecting
// planning metrics. Sinks like PromSink and InfluxSink record run summaries
// and selected assignments and can be combined with NewMultiSink. The
// factory helpers return a MultiSink automatically when multiple sinks are
// configured.
package metrics
