package domain

import "context"

// Snapshot is a namespaced key/value tree of live state.
type Snapshot map[string]any

// DataRequest carries the query parameters handed to every data source.
type DataRequest struct {
	// Context restricts the snapshot to a channel. Empty means no restriction.
	Context string
	// Simulate asks for representative sample data even when no real state exists (UI previews).
	// Sources without simulation support return their normal data.
	Simulate        bool
	SimulateContext any
}

// DataSource is implemented by plugins that expose live state to the store.
// SourceNamespace must be stable and unique across the running system.
type DataSource interface {
	SourceNamespace() string
	ProvideStoreData(ctx context.Context, req DataRequest) Snapshot
}

// Formatter renders aggregated store data into another representation.
type Formatter interface {
	Name() string
	Format(ctx context.Context, template, channel string) string
}
