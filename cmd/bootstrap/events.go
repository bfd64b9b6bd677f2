package bootstrap

import (
	"context"
	"log/slog"

	"checkin-core/internal/events"
	"checkin-core/internal/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var EventsModule = fx.Module("events",
	fx.Provide(
		NewHub,
		func(h *events.Hub) events.Bus { return h },
	),
)

// NewHub wires the broadcast hub, with a Redis backplane when REDIS_ADDR is
// set so snapshots reach subscribers on every process.
func NewHub(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) *events.Hub {
	if cfg.Redis.Addr == "" {
		return events.NewHub(nil, logger)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	backplane := events.NewRedisBackplane(client, logger)
	hub := events.NewHub(backplane, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			backplane.Listen(hub)
			return nil
		},
		OnStop: func(_ context.Context) error {
			backplane.Close()
			return client.Close()
		},
	})

	return hub
}
