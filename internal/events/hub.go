package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

const sendBuffer = 16

// Client is one connected lane watcher. LaneID 0 subscribes to all lanes
// (office dashboard).
type Client struct {
	LaneID int
	Send   chan []byte
}

// Hub is the in-process fan-out for lane events. Slow clients are dropped
// rather than blocking publishers.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	backplane Backplane
	logger    *slog.Logger
}

// Backplane propagates publishes to other processes; nil disables it.
type Backplane interface {
	Publish(ctx context.Context, laneID int, message []byte) error
}

func NewHub(backplane Backplane, logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		backplane: backplane,
		logger:    logger,
	}
}

func (h *Hub) Register(laneID int) *Client {
	c := &Client{LaneID: laneID, Send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	h.mu.Unlock()
}

func (h *Hub) SubscriberCount(laneID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.LaneID == 0 || c.LaneID == laneID {
			n++
		}
	}
	return n
}

func (h *Hub) PublishSessionUpdated(ctx context.Context, laneID int, snapshot any) {
	h.publish(ctx, Envelope{Type: TypeSessionUpdated, LaneID: laneID, Payload: snapshot})
}

func (h *Hub) PublishWaitlistUpdated(ctx context.Context, payload any) {
	h.publish(ctx, Envelope{Type: TypeWaitlistUpdated, Payload: payload})
}

func (h *Hub) PublishScanResolved(ctx context.Context, laneID int, result any) {
	h.publish(ctx, Envelope{Type: TypeScanResolved, LaneID: laneID, Payload: result})
}

func (h *Hub) publish(ctx context.Context, env Envelope) {
	message, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal broadcast envelope", "type", env.Type, "error", err)
		return
	}

	// With a backplane every publish round-trips through it, so each message
	// reaches local subscribers exactly once via DeliverRemote.
	if h.backplane != nil {
		if err := h.backplane.Publish(ctx, env.LaneID, message); err != nil {
			h.logger.Warn("backplane publish failed, delivering locally", "lane_id", env.LaneID, "error", err)
			h.deliver(env.LaneID, message)
		}
		return
	}

	h.deliver(env.LaneID, message)
}

// DeliverRemote feeds messages received from the backplane into local
// subscribers without re-publishing them.
func (h *Hub) DeliverRemote(laneID int, message []byte) {
	h.deliver(laneID, message)
}

func (h *Hub) deliver(laneID int, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if laneID != 0 && c.LaneID != 0 && c.LaneID != laneID {
			continue
		}
		select {
		case c.Send <- message:
		default:
			h.logger.Warn("dropping broadcast for slow subscriber", "lane_id", c.LaneID)
		}
	}
}
