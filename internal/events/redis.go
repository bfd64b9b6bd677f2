package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "lane:"

// RedisBackplane mirrors lane broadcasts across processes via pub/sub, so a
// kiosk connected to one instance sees mutations made through another.
type RedisBackplane struct {
	client *redis.Client
	logger *slog.Logger
	cancel context.CancelFunc
}

func NewRedisBackplane(client *redis.Client, logger *slog.Logger) *RedisBackplane {
	return &RedisBackplane{client: client, logger: logger}
}

func (b *RedisBackplane) Publish(ctx context.Context, laneID int, message []byte) error {
	return b.client.Publish(ctx, channelPrefix+strconv.Itoa(laneID), message).Err()
}

// Listen subscribes to all lane channels and replays remote messages into the
// hub. Runs until Close.
func (b *RedisBackplane) Listen(hub *Hub) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	go func() {
		defer func() {
			if err := sub.Close(); err != nil {
				b.logger.Warn("failed to close redis subscription", "error", err)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				laneID, err := laneFromChannel(msg.Channel)
				if err != nil {
					b.logger.Warn("ignoring message on malformed channel", "channel", msg.Channel)
					continue
				}
				hub.DeliverRemote(laneID, []byte(msg.Payload))
			}
		}
	}()
}

func (b *RedisBackplane) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

func laneFromChannel(channel string) (int, error) {
	raw, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected channel %q", channel)
	}
	return strconv.Atoi(raw)
}
