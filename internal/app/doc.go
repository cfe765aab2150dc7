// Package app provides the application service layer.
//
// Owns the configured relay client set (fan-out publish, circuit breakers, connect
// with retry, keep-alive driving), collapses concurrent store reads and provides the
// built-in data sources. Depends on domain interfaces, not concrete adapters.
package app
