// Package prometheus renders accessguard engine metrics in the Prometheus
// text exposition format, without depending on the Prometheus client
// library.
//
// [NewPrometheusExporter] reads [accessguard.Engine.MetricsSnapshot] on
// every scrape; nothing is cached between scrapes.
//
// # What this package must NOT do
//
//   - Mutate engine state.
//   - Register with any global metrics registry.
package prometheus
