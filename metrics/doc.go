// Package metrics exposes bridge counters and gauges through Prometheus.
//
// Collectors live on a private registry so several sessions, or tests, never
// collide on registration. Handler serves that registry; wire it to an HTTP
// mux when the metrics endpoint is enabled.
package metrics
