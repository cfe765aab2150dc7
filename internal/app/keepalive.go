package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ylorant/HedgeBot-sub001/internal/platform/correlation"
)

// KeepAliver is the part of Relay the ticker drives.
type KeepAliver interface {
	KeepAlive(ctx context.Context)
}

// KeepAliveTicker periodically keeps relay connections alive and reconnects the
// ones that dropped. Each tick gets its own correlation ID.
type KeepAliveTicker struct {
	relay    KeepAliver
	clock    clockwork.Clock
	interval time.Duration
}

func NewKeepAliveTicker(relay KeepAliver, clock clockwork.Clock, interval time.Duration) *KeepAliveTicker {
	return &KeepAliveTicker{
		relay:    relay,
		clock:    clock,
		interval: interval,
	}
}

// Run starts the keep-alive loop. It blocks until ctx is cancelled.
func (t *KeepAliveTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Relay keep-alive started", "interval", t.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			tickCtx := correlation.WithID(ctx, correlation.NewID())
			t.relay.KeepAlive(tickCtx)
			slog.DebugContext(tickCtx, "Relay keep-alive tick done")
		}
	}
}
