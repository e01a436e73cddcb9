package live

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBroker_FanOut(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx := context.Background()

	a, cancelA, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer cancelA()

	c, cancelC, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer cancelC()

	require.NoError(t, b.Publish(ctx, Event{Type: TypeUserUpdated, EntityID: "u1"}))

	assert.Equal(t, "u1", receive(t, a).EntityID)
	assert.Equal(t, "u1", receive(t, c).EntityID)
}

func TestMemoryBroker_CancelClosesAndUnsubscribes(t *testing.T) {
	b := NewMemoryBroker(1)

	ch, cancel, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	require.NoError(t, b.Publish(context.Background(), Event{Type: TypeUserDeleted}))
}

func TestMemoryBroker_ContextDoneUnsubscribes(t *testing.T) {
	b := NewMemoryBroker(1)
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := b.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Equal(t, 0, b.Subscribers())
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemoryBroker(1)

	_, cancel, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{Type: TypePINSet}))
	}
}

type failingBroker struct{}

func (failingBroker) Publish(context.Context, Event) error { return errors.New("down") }
func (failingBroker) Subscribe(context.Context) (<-chan Event, func(), error) {
	return nil, nil, errors.New("down")
}

func TestPublisher_StampsAndSwallowsErrors(t *testing.T) {
	b := NewMemoryBroker(1)
	p := NewPublisher(b, nil)
	fixed := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ch, cancel, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancel()

	p.Publish(context.Background(), TypePINReset, "u9")
	ev := receive(t, ch)
	assert.Equal(t, Event{Type: TypePINReset, EntityID: "u9", At: fixed}, ev)

	NewPublisher(failingBroker{}, nil).Publish(context.Background(), TypeUserCreated, "x")

	var nilPub *Publisher
	nilPub.Publish(context.Background(), TypeUserCreated, "x")
}

func TestRedisBroker_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	rdb := NewRedisClient(RedisConfig{Addr: addr})
	defer rdb.Close()

	b := NewRedisBroker(rdb, "homeops:live:test", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, b.Ping(ctx))

	ch, stop, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, b.Publish(ctx, Event{Type: TypeUserCreated, EntityID: "u1"}))
	assert.Equal(t, TypeUserCreated, receive(t, ch).Type)
}
