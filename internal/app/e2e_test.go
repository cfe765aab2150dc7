package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ylorant/HedgeBot-sub001/internal/adapter/mercure"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/metrics"
	"github.com/ylorant/HedgeBot-sub001/internal/adapter/socketio"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/config"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

// timerSource is a minimal plugin: live state on the pull side, events on the push side.
type timerSource struct {
	relay *Relay
	state map[string]any
}

func (s *timerSource) SourceNamespace() string { return "timer" }

func (s *timerSource) ProvideStoreData(context.Context, domain.DataRequest) domain.Snapshot {
	return domain.Snapshot{"t1": s.state}
}

func (s *timerSource) stop(ctx context.Context, id string) error {
	s.state["running"] = false
	return s.relay.Publish(ctx, "Timer", domain.NewTimerEvent("stop", id, nil))
}

// startSocketIOServer accepts one Socket.IO v2 client and forwards every frame it sends.
func startSocketIOServer(t *testing.T) (*httptest.Server, <-chan string) {
	t.Helper()
	frames := make(chan string, 16)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"e2e","upgrades":[],"pingInterval":25000,"pingTimeout":5000}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("40"))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, frames
}

func TestEndToEnd_StoreAndRelay(t *testing.T) {
	srv, frames := startSocketIOServer(t)

	registry := relay.MustNewRegistry(
		socketio.Factory(clockwork.NewRealClock()),
		mercure.Factory(),
	)
	decls := []config.RelayConfig{
		{Name: "overlay", Type: socketio.Type, Options: map[string]any{"host": srv.URL, "timeout": "2s"}},
	}
	r, err := NewRelay(registry, decls, metrics.NewRelayMetrics(prometheus.NewRegistry()), RelayOptions{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))
	t.Cleanup(func() { _ = r.Disconnect(ctx) })

	st := store.New(nil)
	timer := &timerSource{relay: r, state: map[string]any{"running": true}}
	require.True(t, st.RegisterSource(timer))
	require.True(t, st.RegisterSource(NewRelaySource(r)))

	data := NewSnapshots(st).GetData(ctx, store.Query{})
	assert.Equal(t, true, data["timer"]["t1"].(map[string]any)["running"])
	assert.Equal(t, 1, data["relay"]["available"])

	require.NoError(t, timer.stop(ctx, "t1"))

	select {
	case frame := <-frames:
		require.True(t, strings.HasPrefix(frame, "42"), "frame %q", frame)
		assert.JSONEq(t, `["event",{"listener":"Timer","event":{"name":"stop","type":"timer","id":"t1"}}]`, frame[2:])
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not deliver the event")
	}

	data = st.GetData(ctx, store.Query{Namespace: "timer"})
	assert.Equal(t, false, data["timer"]["t1"].(map[string]any)["running"])
	assert.NotContains(t, data, "relay")
}
