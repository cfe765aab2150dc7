package store

import (
	"context"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
)

// Query selects what GetData aggregates.
type Query struct {
	// Context is forwarded to every source (typically a channel name).
	Context string
	// Namespace restricts the query to the source(s) with exactly this namespace. Empty means all.
	Namespace       string
	Simulate        bool
	SimulateContext any
}

type Store struct {
	mu         sync.RWMutex
	sources    []domain.DataSource
	formatters map[string]domain.Formatter

	metrics *metrics.StoreMetrics
}

// New creates an empty store. storeMetrics may be nil.
func New(storeMetrics *metrics.StoreMetrics) *Store {
	return &Store{
		formatters: make(map[string]domain.Formatter),
		metrics:    storeMetrics,
	}
}

// RegisterSource appends a source. Returns false without mutating anything if the
// same source is already registered. Sources with colliding namespaces are
// both kept; see GetData.
func (s *Store) RegisterSource(source domain.DataSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(source) >= 0 {
		return false
	}
	s.sources = append(s.sources, source)
	return true
}

// UnregisterSource removes a previously registered source.
func (s *Store) UnregisterSource(source domain.DataSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(source)
	if idx < 0 {
		return false
	}
	// Build a new slice: in-flight queries still hold the old one.
	s.sources = slices.Concat(s.sources[:idx], s.sources[idx+1:])
	return true
}

func (s *Store) indexOf(source domain.DataSource) int {
	return slices.IndexFunc(s.sources, func(registered domain.DataSource) bool {
		return sameSource(registered, source)
	})
}

// sameSource reports whether a and b are the same source. Maps compare by
// reference; other values that cannot be compared with == are never the same.
func sameSource(a, b domain.DataSource) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Map {
		return va.UnsafePointer() == vb.UnsafePointer()
	}
	return va.Comparable() && vb.Comparable() && a == b
}

// RegisterFormatter adds a formatter under its declared name. Returns false if the name is taken.
func (s *Store) RegisterFormatter(formatter domain.Formatter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := formatter.Name()
	if _, exists := s.formatters[name]; exists {
		return false
	}
	s.formatters[name] = formatter
	return true
}

// UnregisterFormatter removes the formatter registered under name.
// Callers holding an instance pass formatter.Name().
func (s *Store) UnregisterFormatter(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.formatters[name]; !exists {
		return false
	}
	delete(s.formatters, name)
	return true
}

func (s *Store) Formatter(name string) (domain.Formatter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.formatters[name]
	return f, ok
}

// GetData assembles the namespace->snapshot map for q.
//
// An empty store or an unknown namespace yields an empty (non-nil) map. When two sources
// declare the same namespace, the one registered last overwrites the earlier one.
func (s *Store) GetData(ctx context.Context, q Query) map[string]domain.Snapshot {
	start := time.Now()

	s.mu.RLock()
	sources := s.sources
	s.mu.RUnlock()

	req := domain.DataRequest{
		Context:         q.Context,
		Simulate:        q.Simulate,
		SimulateContext: q.SimulateContext,
	}

	data := make(map[string]domain.Snapshot)
	for _, source := range sources {
		namespace := source.SourceNamespace()
		if q.Namespace != "" && namespace != q.Namespace {
			continue
		}

		snapshot := source.ProvideStoreData(ctx, req)
		if snapshot == nil {
			snapshot = domain.Snapshot{}
		}
		data[namespace] = snapshot
	}

	if s.metrics != nil {
		s.metrics.ObserveQuery(q.Namespace != "", q.Simulate, time.Since(start))
	}

	return data
}

// Namespaces lists the namespaces of the registered sources, sorted and deduplicated.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sources))
	for _, source := range s.sources {
		names = append(names, source.SourceNamespace())
	}
	sort.Strings(names)
	return slices.Compact(names)
}

func (s *Store) FormatterNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.formatters))
	for name := range s.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
