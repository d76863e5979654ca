/*
Package observability exports engine activity as Prometheus metrics.

A Collector registers counters for transitions, predictions, weight
updates, decay passes, session endings, detected patterns and errors,
plus an active-sessions gauge and a prediction latency histogram. Bind
attaches it to an engine's notification streams; the returned function
detaches it again.
*/
package observability
