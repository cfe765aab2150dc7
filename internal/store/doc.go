// Package store implements the live data store.
//
// Plugins register DataSources (one namespace each) and Formatters (one name each). GetData asks every
// registered source, or the single one matching a namespace restraint, for its snapshot and assembles a
// namespace->snapshot map. Registration is guarded by a RWMutex; queries iterate a copy of the source list
// so a concurrent unregister never removes a source mid-iteration.
package store
