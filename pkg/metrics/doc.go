// Package metrics records API requests and retries as Prometheus metrics.
package metrics
