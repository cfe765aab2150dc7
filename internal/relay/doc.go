// Package relay resolves configured transport names to relay client adapters.
//
// Each adapter package exports a Factory carrying its type tag. The Registry is built once at
// startup from the full factory list, rejects duplicate tags, and is read-only afterwards.
package relay
