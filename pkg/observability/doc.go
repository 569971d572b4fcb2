/*
Package observability provides Prometheus instrumentation for the exposition engine.

It counts field reads and writes per endpoint, whole-model writes, and
request latency. All Metrics methods are safe to call on a nil *Metrics,
so instrumentation can be left disabled without guarding call sites.
*/
package observability
