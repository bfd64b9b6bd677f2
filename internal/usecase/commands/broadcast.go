package commands

import (
	"context"
	"log/slog"

	"checkin-core/internal/events"
	"checkin-core/internal/usecase/queries"
)

// SessionViewSource supplies the snapshot broadcast after every mutation.
type SessionViewSource interface {
	FindActiveByLane(ctx context.Context, laneID int) (*queries.SessionView, error)
	FindAllActive(ctx context.Context) ([]*queries.SessionView, error)
}

// Broadcaster pushes full-session snapshots to everyone watching a lane.
// Failures are logged and dropped: a committed transaction is never rolled
// back or retried because a viewer could not be notified.
type Broadcaster struct {
	bus    events.Bus
	views  SessionViewSource
	logger *slog.Logger
}

func NewBroadcaster(bus events.Bus, views SessionViewSource, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{bus: bus, views: views, logger: logger}
}

// SessionUpdated fetches the lane's current snapshot and publishes it. When
// the lane has no active session (after reset or completion) an empty
// snapshot with just the lane id is published so clients clear their screens.
func (b *Broadcaster) SessionUpdated(ctx context.Context, laneID int) {
	view, err := b.views.FindActiveByLane(ctx, laneID)
	if err != nil {
		b.logger.Debug("no snapshot for lane, publishing clear", "lane_id", laneID)
		b.bus.PublishSessionUpdated(ctx, laneID, map[string]any{"laneId": laneID})
		return
	}
	b.bus.PublishSessionUpdated(ctx, laneID, view)
}

func (b *Broadcaster) WaitlistUpdated(ctx context.Context, payload any) {
	b.bus.PublishWaitlistUpdated(ctx, payload)
}
