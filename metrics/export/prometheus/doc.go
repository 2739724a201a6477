// Package prometheus renders credstore metrics in the Prometheus text
// exposition format. Counter names are credstore_*_total; the single
// histogram is credstore_store_latency_seconds. Callers mount Handler
// themselves; nothing is registered globally.
package prometheus
