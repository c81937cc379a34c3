// Package metrics collects the runtime metrics of a pKV server.
//
// ServerMetrics is registered as the observer of the server transport and
// is therefore updated from the event loop. Counters and gauges are kept in
// a VictoriaMetrics set and exposed in the Prometheus text format on an
// optional HTTP endpoint. Loop round and request latencies are tracked with
// go-metrics timers and summarized in a periodic stats log line.
package metrics
