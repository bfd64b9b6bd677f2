//go:build unit

package events_test

import (
	"context"
	"testing"
	"time"

	"checkin-core/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackplane(t *testing.T) (*events.RedisBackplane, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return events.NewRedisBackplane(client, discardLogger()), client
}

func TestRedisBackplane_RoundTrip(t *testing.T) {
	backplane, _ := newBackplane(t)
	hub := events.NewHub(backplane, discardLogger())
	backplane.Listen(hub)
	defer backplane.Close()

	c := hub.Register(2)
	defer hub.Unregister(c)

	// Subscription setup is asynchronous; give miniredis a beat.
	time.Sleep(50 * time.Millisecond)

	hub.PublishSessionUpdated(context.Background(), 2, map[string]any{"laneId": 2})

	env := receive(t, c)
	assert.Equal(t, events.TypeSessionUpdated, env.Type)
	assert.Equal(t, 2, env.LaneID)
}

func TestRedisBackplane_CrossProcessDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	backplaneA := events.NewRedisBackplane(clientA, discardLogger())
	backplaneB := events.NewRedisBackplane(clientB, discardLogger())
	hubA := events.NewHub(backplaneA, discardLogger())
	hubB := events.NewHub(backplaneB, discardLogger())
	backplaneA.Listen(hubA)
	backplaneB.Listen(hubB)
	defer backplaneA.Close()
	defer backplaneB.Close()

	watcher := hubB.Register(1)
	defer hubB.Unregister(watcher)

	time.Sleep(50 * time.Millisecond)

	hubA.PublishSessionUpdated(context.Background(), 1, map[string]any{"status": "ACTIVE"})

	env := receive(t, watcher)
	require.Equal(t, 1, env.LaneID)
	assert.Equal(t, events.TypeSessionUpdated, env.Type)
}
