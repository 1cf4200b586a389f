// Package metric provides Prometheus metrics for DevMesh.
//
//   - prometheus.go: registry construction and the /metrics handler
//   - collector.go: proxy and coordinator metric sets
//
// Every metric set is nil-safe: components created without metrics
// call the same methods on a nil receiver.
package metric
