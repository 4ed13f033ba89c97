package membus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/storefront/eventbus"
	"github.com/dpup/storefront/logging"
)

func TestBus_BasicPubSub(t *testing.T) {
	bus := New(logging.EnsureLogger(t.Context()))

	var called bool
	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		assert.Equal(t, "hello", msg.Data)
		called = true
		return nil
	})

	bus.Publish("topic", "hello")

	assert.Eventually(t, func() bool { return called },
		time.Millisecond*10,
		time.Millisecond,
		"subscriber should have been called")
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New(logging.EnsureLogger(t.Context()))

	var called []int
	var mu sync.Mutex
	for i := range 10 {
		bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "hello", msg.Data)
			called = append(called, i)
			return nil
		})
	}

	bus.Publish("topic", "hello")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		slices.Sort(called) // Execution order isn't guaranteed.
		return slices.Equal(called, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	},
		time.Millisecond*10,
		time.Millisecond,
		"subscribers should have been called")
}

func TestBus_QueueRoundRobin(t *testing.T) {
	bus := New(logging.EnsureLogger(t.Context()))

	var mu sync.Mutex
	counts := make([]int, 2)
	for i := range 2 {
		bus.SubscribeQueue("orders", func(ctx context.Context, msg *eventbus.Message) error {
			mu.Lock()
			defer mu.Unlock()
			counts[i]++
			return nil
		})
	}

	for range 10 {
		bus.Enqueue("orders", "order")
	}

	require.NoError(t, bus.Wait(t.Context()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, counts[0], "queue messages should round-robin")
	assert.Equal(t, 5, counts[1], "queue messages should round-robin")
}

func TestBus_Wait(t *testing.T) {
	bus := New(logging.EnsureLogger(t.Context()))

	var called bool
	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		time.Sleep(time.Millisecond * 50)
		called = true
		return nil
	})

	bus.Publish("topic", "hello")

	require.NoError(t, bus.Wait(t.Context()))
	assert.True(t, called, "subscriber should have been called")
}

func TestBus_WaitTimeout(t *testing.T) {
	bus := New(logging.EnsureLogger(t.Context()))

	var called bool
	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		time.Sleep(time.Millisecond * 50)
		called = true
		return nil
	})

	bus.Publish("topic", "hello")

	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()

	require.Error(t, bus.Wait(ctx))
	assert.False(t, called, "subscriber should not have been called yet")
}

func TestBus_SubscriberError(t *testing.T) {
	ctx := logging.EnsureLogger(t.Context())
	bus := New(ctx)

	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		return errors.New("subscriber error")
	})

	bus.Publish("topic", "hello")
	assert.NoError(t, bus.Wait(ctx))
}

func TestBus_SubscriberPanic(t *testing.T) {
	ctx := logging.EnsureLogger(t.Context())
	bus := New(ctx)

	var ok bool
	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		panic("subscriber panic")
	})
	bus.Subscribe("topic", func(ctx context.Context, msg *eventbus.Message) error {
		ok = true
		return nil
	})

	bus.Publish("topic", "hello")
	require.NoError(t, bus.Wait(ctx))
	assert.True(t, ok, "panic in one subscriber must not break others")
}
