// Package metrics implements srt.MetricsSink with Prometheus CounterVec and
// GaugeVec collectors, labeled by group and link id the way an application
// embedding this module would want to slice them on a dashboard.
package metrics
