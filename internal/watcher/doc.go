// Package watcher runs breaker-protected health probes against watched
// dependencies so their circuit breakers reflect real availability.
package watcher
