package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierRelaysToHub(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub, _ := startHub(t, nil)
	conn, _, err := dial(t, hub, []string{"band:7"}, nil)
	require.NoError(t, err)
	readMessage(t, conn)

	notifier := NewRedisNotifier(rdb, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	subscribed := make(chan error, 1)
	go func() { subscribed <- notifier.Subscribe(ctx, hub) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(EventsChannel)[EventsChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	d := NewDispatcher(notifier, 8, zerolog.Nop())
	d.Notify(context.Background(), "band:7", "setlist.reordered", []int{1, 2})
	d.Close()

	got := readMessage(t, conn)
	assert.Equal(t, "band:7", got["channel"])
	assert.Equal(t, "setlist.reordered", got["kind"])

	cancel()
	select {
	case err := <-subscribed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestRedisPublishFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err = NewRedisNotifier(rdb, zerolog.Nop()).Publish(context.Background(), Message{Channel: "user:1"})
	assert.Error(t, err)
}
