package trace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueTryPutRejectsWhenFull(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.TryPut(Item{ConversationID: "a"}))
	assert.True(t, q.TryPut(Item{ConversationID: "b"}))
	assert.False(t, q.TryPut(Item{ConversationID: "c"}))

	// The rejected item must not displace buffered ones.
	assert.Equal(t, 2, q.Len())
	item, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", item.ConversationID)
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(3)
	for _, id := range []string{"1", "2", "3"} {
		require.True(t, q.TryPut(Item{ConversationID: id}))
	}
	for _, want := range []string{"1", "2", "3"} {
		item, ok := q.Get(context.Background())
		require.True(t, ok)
		assert.Equal(t, want, item.ConversationID)
	}
}

func TestQueueGetCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after cancellation")
	}
}

func TestQueueCapacity(t *testing.T) {
	q := NewQueue(100)
	assert.Equal(t, 100, q.Cap())
	assert.Equal(t, 0, q.Len())
}
