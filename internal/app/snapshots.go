package app

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

// DataReader aggregates store data.
type DataReader interface {
	GetData(ctx context.Context, q store.Query) map[string]domain.Snapshot
}

// Snapshots collapses concurrent identical store queries into one aggregation.
// Queries with a SimulateContext are never shared since it cannot be keyed.
//
// Callers sharing a result receive the same map and must treat it as read-only.
type Snapshots struct {
	reader DataReader
	group  singleflight.Group
}

func NewSnapshots(reader DataReader) *Snapshots {
	return &Snapshots{reader: reader}
}

func (s *Snapshots) GetData(ctx context.Context, q store.Query) map[string]domain.Snapshot {
	if q.SimulateContext != nil {
		return s.reader.GetData(ctx, q)
	}

	// The shared aggregation must not be cut short by whichever caller started it.
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(queryKey(q), func() (any, error) {
		return s.reader.GetData(shared, q), nil
	})
	return v.(map[string]domain.Snapshot)
}

func queryKey(q store.Query) string {
	return strings.Join([]string{q.Context, q.Namespace, strconv.FormatBool(q.Simulate)}, "\x00")
}
