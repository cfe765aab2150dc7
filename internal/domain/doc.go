// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (event.go, store.go, relay.go, errors.go)
// with shared types and cross-cutting interfaces. Beyond a few value constructors there is
// no implementation code - just contracts. Keeps plugins, the store, relay adapters and the
// HTTP layer free of circular imports.
package domain
