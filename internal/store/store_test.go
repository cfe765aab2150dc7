package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
)

type mockSource struct {
	namespace string
	data      domain.Snapshot
	calls     atomic.Int32

	mu      sync.Mutex
	lastReq domain.DataRequest
}

func (m *mockSource) SourceNamespace() string { return m.namespace }

func (m *mockSource) ProvideStoreData(_ context.Context, req domain.DataRequest) domain.Snapshot {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	return m.data
}

type mockFormatter struct {
	name   string
	result string
}

func (m *mockFormatter) Name() string { return m.name }

func (m *mockFormatter) Format(_ context.Context, _, _ string) string { return m.result }

func TestGetData_EmptyStore(t *testing.T) {
	s := New(nil)

	data := s.GetData(context.Background(), Query{})
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestGetData_AggregatesAllSources(t *testing.T) {
	s := New(nil)
	require.True(t, s.RegisterSource(&mockSource{namespace: "timer", data: domain.Snapshot{"elapsed": 42}}))
	require.True(t, s.RegisterSource(&mockSource{namespace: "quote", data: domain.Snapshot{"count": 3}}))

	data := s.GetData(context.Background(), Query{})

	assert.Equal(t, map[string]domain.Snapshot{
		"timer": {"elapsed": 42},
		"quote": {"count": 3},
	}, data)
}

func TestGetData_NamespaceRestraint(t *testing.T) {
	timer := &mockSource{namespace: "timer", data: domain.Snapshot{"elapsed": 42}}
	quote := &mockSource{namespace: "quote", data: domain.Snapshot{"count": 3}}
	s := New(nil)
	s.RegisterSource(timer)
	s.RegisterSource(quote)

	data := s.GetData(context.Background(), Query{Namespace: "timer"})

	assert.Equal(t, map[string]domain.Snapshot{"timer": {"elapsed": 42}}, data)
	assert.Equal(t, int32(0), quote.calls.Load(), "restrained query must not ask other sources")
}

func TestGetData_UnknownNamespace(t *testing.T) {
	s := New(nil)
	s.RegisterSource(&mockSource{namespace: "timer", data: domain.Snapshot{"elapsed": 42}})

	data := s.GetData(context.Background(), Query{Namespace: "Timer"})
	assert.NotNil(t, data)
	assert.Empty(t, data, "namespace match is exact")
}

func TestGetData_ForwardsRequest(t *testing.T) {
	src := &mockSource{namespace: "timer"}
	s := New(nil)
	s.RegisterSource(src)

	s.GetData(context.Background(), Query{Context: "#hedgebot", Simulate: true, SimulateContext: "preview"})

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, domain.DataRequest{Context: "#hedgebot", Simulate: true, SimulateContext: "preview"}, src.lastReq)
}

func TestGetData_NilSnapshotBecomesEmpty(t *testing.T) {
	s := New(nil)
	s.RegisterSource(&mockSource{namespace: "raffle"})

	data := s.GetData(context.Background(), Query{})
	require.Contains(t, data, "raffle")
	assert.NotNil(t, data["raffle"])
	assert.Empty(t, data["raffle"])
}

func TestGetData_DuplicateNamespaceLastRegisteredWins(t *testing.T) {
	first := &mockSource{namespace: "timer", data: domain.Snapshot{"from": "first"}}
	second := &mockSource{namespace: "timer", data: domain.Snapshot{"from": "second"}}
	s := New(nil)
	require.True(t, s.RegisterSource(first))
	require.True(t, s.RegisterSource(second), "colliding namespaces are not rejected")

	data := s.GetData(context.Background(), Query{})

	assert.Len(t, data, 1)
	assert.Equal(t, "second", data["timer"]["from"])
	assert.Equal(t, int32(1), first.calls.Load(), "both sources are still queried")

	require.True(t, s.UnregisterSource(second))
	assert.Equal(t, "first", s.GetData(context.Background(), Query{})["timer"]["from"])
}

func TestRegisterSource_SameReferenceTwice(t *testing.T) {
	src := &mockSource{namespace: "timer"}
	s := New(nil)

	assert.True(t, s.RegisterSource(src))
	assert.False(t, s.RegisterSource(src))
	assert.Equal(t, []string{"timer"}, s.Namespaces())
}

type mapSource map[string]any

func (m mapSource) SourceNamespace() string { return "map" }

func (m mapSource) ProvideStoreData(context.Context, domain.DataRequest) domain.Snapshot {
	return domain.Snapshot(m)
}

type taggedSource struct {
	namespace string
	tags      map[string]string
}

func (t taggedSource) SourceNamespace() string { return t.namespace }

func (t taggedSource) ProvideStoreData(context.Context, domain.DataRequest) domain.Snapshot {
	return domain.Snapshot{"tags": t.tags}
}

func TestRegisterSource_MapTypedSource(t *testing.T) {
	s := New(nil)
	first := mapSource{"a": 1}
	second := mapSource{"b": 2}

	require.NotPanics(t, func() {
		assert.True(t, s.RegisterSource(first))
		assert.True(t, s.RegisterSource(second))
	})
	assert.False(t, s.RegisterSource(first), "the same map is already registered")

	assert.True(t, s.UnregisterSource(first))
	assert.False(t, s.UnregisterSource(first))
	assert.Equal(t, 2, s.GetData(context.Background(), Query{})["map"]["b"])
}

func TestRegisterSource_UncomparableStructSource(t *testing.T) {
	s := New(nil)
	src := taggedSource{namespace: "tags", tags: map[string]string{"k": "v"}}

	require.NotPanics(t, func() {
		assert.True(t, s.RegisterSource(src))
		assert.True(t, s.RegisterSource(src))
		assert.False(t, s.UnregisterSource(src))
	})
	assert.Equal(t, []string{"tags"}, s.Namespaces())
	assert.Equal(t, map[string]string{"k": "v"}, s.GetData(context.Background(), Query{})["tags"]["tags"])
}

func TestUnregisterSource_NotFound(t *testing.T) {
	s := New(nil)
	assert.False(t, s.UnregisterSource(&mockSource{namespace: "timer"}))
}

func TestRegisterUnregister_NamespacesMatchRegisteredSources(t *testing.T) {
	sources := make([]*mockSource, 6)
	for i := range sources {
		sources[i] = &mockSource{namespace: fmt.Sprintf("ns%d", i)}
	}

	ops := []struct {
		register bool
		idx      int
	}{
		{true, 0}, {true, 1}, {true, 2}, {false, 1}, {true, 3}, {false, 0},
		{true, 1}, {false, 5}, {true, 4}, {false, 2}, {true, 5}, {false, 3},
	}

	s := New(nil)
	registered := make(map[string]bool)
	for _, op := range ops {
		src := sources[op.idx]
		if op.register {
			s.RegisterSource(src)
			registered[src.namespace] = true
		} else {
			s.UnregisterSource(src)
			delete(registered, src.namespace)
		}

		got := make(map[string]bool)
		for ns := range s.GetData(context.Background(), Query{}) {
			got[ns] = true
		}
		assert.Equal(t, registered, got)
	}
}

func TestGetData_ConcurrentRegistration(t *testing.T) {
	s := New(nil)
	stable := &mockSource{namespace: "stable", data: domain.Snapshot{"ok": true}}
	s.RegisterSource(stable)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				src := &mockSource{namespace: fmt.Sprintf("churn-%d-%d", i, j)}
				s.RegisterSource(src)
				s.UnregisterSource(src)
			}
		}(i)
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				data := s.GetData(context.Background(), Query{})
				assert.Equal(t, true, data["stable"]["ok"])
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"stable"}, s.Namespaces())
}

func TestRegisterFormatter_DuplicateName(t *testing.T) {
	s := New(nil)
	first := &mockFormatter{name: "vars", result: "first"}
	second := &mockFormatter{name: "vars", result: "second"}

	assert.True(t, s.RegisterFormatter(first))
	assert.False(t, s.RegisterFormatter(second))

	f, ok := s.Formatter("vars")
	require.True(t, ok)
	assert.Same(t, first, f)
}

func TestUnregisterFormatter(t *testing.T) {
	s := New(nil)
	f := &mockFormatter{name: "vars"}
	s.RegisterFormatter(f)

	assert.True(t, s.UnregisterFormatter(f.Name()))
	assert.False(t, s.UnregisterFormatter(f.Name()))

	_, ok := s.Formatter("vars")
	assert.False(t, ok)
}

func TestFormatterNames_Sorted(t *testing.T) {
	s := New(nil)
	s.RegisterFormatter(&mockFormatter{name: "vars"})
	s.RegisterFormatter(&mockFormatter{name: "json"})

	assert.Equal(t, []string{"json", "vars"}, s.FormatterNames())
}
