// Package handler implements the HTTP handlers exposing circuit breaker
// status and reset operations over the registry.
package handler
