package events

import "context"

// Bus fans state-change notifications out to every party watching a lane
// (kiosk, employee register, office dashboard). Publishing is fire-and-forget:
// implementations log failures and never block the caller, because a broadcast
// must never hold up a committed transaction.
type Bus interface {
	// PublishSessionUpdated pushes a full session snapshot to all lane
	// subscribers. Snapshots, not deltas: clients resync from the latest one
	// after reconnecting.
	PublishSessionUpdated(ctx context.Context, laneID int, snapshot any)

	// PublishWaitlistUpdated signals the office dashboard that waitlist
	// demand changed.
	PublishWaitlistUpdated(ctx context.Context, payload any)

	// PublishScanResolved tells the lane's kiosk what the register scanner
	// just resolved, so it can greet the customer before the session opens.
	PublishScanResolved(ctx context.Context, laneID int, result any)
}

const (
	TypeSessionUpdated  = "session_updated"
	TypeWaitlistUpdated = "waitlist_updated"
	TypeScanResolved    = "scan_resolved"
)

// Envelope is the wire shape of every broadcast message.
type Envelope struct {
	Type    string `json:"type"`
	LaneID  int    `json:"laneId,omitempty"`
	Payload any    `json:"payload"`
}
