package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

// channelSource returns different data depending on the requested channel.
type channelSource struct {
	namespace string
	data      map[string]domain.Snapshot
}

func (s *channelSource) SourceNamespace() string { return s.namespace }

func (s *channelSource) ProvideStoreData(_ context.Context, req domain.DataRequest) domain.Snapshot {
	return s.data[req.Context]
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(nil)
	require.True(t, st.RegisterSource(&channelSource{
		namespace: "timer",
		data: map[string]domain.Snapshot{
			"#hedgebot": {"t1": map[string]any{"elapsed": 42, "label": "Speedrun", "running": true}},
			"#other":    {"t1": map[string]any{"elapsed": 7}},
		},
	}))
	require.True(t, st.RegisterSource(&channelSource{
		namespace: "horaro",
		data: map[string]domain.Snapshot{
			"#hedgebot": {"current": map[string]any{"game": "Celeste", "runners": []any{"ylorant", "madeline"}}},
		},
	}))
	return st
}

func TestVars_Format(t *testing.T) {
	vars := NewVars(newTestStore(t))

	tests := []struct {
		name     string
		template string
		channel  string
		want     string
	}{
		{"no placeholder", "plain text", "#hedgebot", "plain text"},
		{"number", "Elapsed: {timer.t1.elapsed}s", "#hedgebot", "Elapsed: 42s"},
		{"string", "{timer.t1.label} is on", "#hedgebot", "Speedrun is on"},
		{"bool", "running={timer.t1.running}", "#hedgebot", "running=true"},
		{"several namespaces", "{horaro.current.game} ({timer.t1.elapsed})", "#hedgebot", "Celeste (42)"},
		{"array index", "{horaro.current.runners.1}", "#hedgebot", "madeline"},
		{"object renders as json", "{horaro.current.runners}", "#hedgebot", `["ylorant","madeline"]`},
		{"channel context", "{timer.t1.elapsed}", "#other", "7"},
		{"unknown placeholder left verbatim", "Hello {viewer.name}!", "#hedgebot", "Hello {viewer.name}!"},
		{"empty placeholder left verbatim", "a {} b", "#hedgebot", "a {} b"},
		{"placeholder with space left verbatim", "{timer t1}", "#hedgebot", "{timer t1}"},
		{"escaped brace", "{{timer.t1.elapsed}", "#hedgebot", "{timer.t1.elapsed}"},
		{"unterminated", "value {timer.t1.elapsed", "#hedgebot", "value {timer.t1.elapsed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vars.Format(context.Background(), tt.template, tt.channel))
		})
	}
}

func TestJSON_Format(t *testing.T) {
	j := NewJSON(newTestStore(t))

	assert.Equal(t, "42", j.Format(context.Background(), "timer.t1.elapsed", "#hedgebot"))
	assert.JSONEq(t, `{"game":"Celeste","runners":["ylorant","madeline"]}`, j.Format(context.Background(), "horaro.current", "#hedgebot"))
	assert.Equal(t, "null", j.Format(context.Background(), "timer.t9", "#hedgebot"))
	assert.JSONEq(t, `{"timer":{"t1":{"elapsed":7}},"horaro":{}}`, j.Format(context.Background(), "", "#other"))
}

func TestFormatters_RegisterInStore(t *testing.T) {
	st := newTestStore(t)
	require.True(t, st.RegisterFormatter(NewVars(st)))
	require.True(t, st.RegisterFormatter(NewJSON(st)))
	assert.False(t, st.RegisterFormatter(NewVars(st)), "names are unique")

	f, ok := st.Formatter(VarsName)
	require.True(t, ok)
	assert.Equal(t, "Celeste", f.Format(context.Background(), "{horaro.current.game}", "#hedgebot"))
	assert.Equal(t, []string{JSONName, VarsName}, st.FormatterNames())
}
