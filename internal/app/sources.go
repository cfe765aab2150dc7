package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/version"
)

const (
	RelayNamespace  = "relay"
	SystemNamespace = "system"
)

// StatusReporter lists relay clients.
type StatusReporter interface {
	Statuses() []RelayStatus
}

// RelaySource exposes the relay client set under the "relay" namespace.
type RelaySource struct {
	relay StatusReporter
}

func NewRelaySource(relay StatusReporter) *RelaySource {
	return &RelaySource{relay: relay}
}

func (s *RelaySource) SourceNamespace() string { return RelayNamespace }

// ProvideStoreData ignores the channel context: relays are process-wide.
// Simulation returns a fixed pair of clients so overlays can be previewed without relays.
func (s *RelaySource) ProvideStoreData(_ context.Context, req domain.DataRequest) domain.Snapshot {
	statuses := s.relay.Statuses()
	if req.Simulate && len(statuses) == 0 {
		statuses = []RelayStatus{
			{Name: "overlay", Type: "socketio", Available: true, Circuit: "closed"},
			{Name: "hub", Type: "mercure", Available: false, Circuit: "closed"},
		}
	}

	clients := make([]any, 0, len(statuses))
	available := 0
	for _, st := range statuses {
		if st.Available {
			available++
		}
		clients = append(clients, map[string]any{
			"name":      st.Name,
			"type":      st.Type,
			"available": st.Available,
			"circuit":   st.Circuit,
		})
	}

	return domain.Snapshot{
		"clients":   clients,
		"total":     len(statuses),
		"available": available,
	}
}

// SystemSource exposes build information and uptime under the "system" namespace.
type SystemSource struct {
	clock   clockwork.Clock
	started time.Time
}

func NewSystemSource(clock clockwork.Clock) *SystemSource {
	return &SystemSource{clock: clock, started: clock.Now()}
}

func (s *SystemSource) SourceNamespace() string { return SystemNamespace }

func (s *SystemSource) ProvideStoreData(context.Context, domain.DataRequest) domain.Snapshot {
	info := version.Get()
	return domain.Snapshot{
		"version":        info.Version,
		"commit":         info.Commit,
		"go_version":     info.GoVersion,
		"started_at":     s.started.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(s.clock.Since(s.started).Seconds()),
	}
}
