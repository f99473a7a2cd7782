// Package reliability provides the retry machinery used by retrying process
// steps: pluggable retry policies with backoff and jitter and a context
// aware retry driver.
package reliability
