// Package prometheus renders sessiongate metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [sessiongate.Gate] and exposes an
// [http.Handler] that renders all gate counters and the authenticate
// latency histogram. Counter names are prefixed sessiongate_*_total; the
// single histogram is sessiongate_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate gate state.
package prometheus
