package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBus(t *testing.T) {
	b := NewBus()
	assert.NotNil(t, b)
	assert.NotNil(t, b.subscribers)
}

func TestBus_SubscribeUnsubscribe(t *testing.T) {
	b := NewBus()

	ch := b.Subscribe("test-subscriber")
	assert.NotNil(t, ch)

	b.mutex.RLock()
	_, exists := b.subscribers["test-subscriber"]
	b.mutex.RUnlock()
	assert.True(t, exists)

	b.Unsubscribe("test-subscriber")

	b.mutex.RLock()
	_, exists = b.subscribers["test-subscriber"]
	b.mutex.RUnlock()
	assert.False(t, exists)
}

func TestBus_Publish(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("test-subscriber")

	b.Publish(EventTypeFileStart, FileStartEvent("app/page.tsx", "page", 0, 3))

	select {
	case event := <-ch:
		assert.Equal(t, EventTypeFileStart, event.Type)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
		data, ok := event.Data.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "app/page.tsx", data["path"])
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event was not received")
	}
}

func TestBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBus()
	b.Subscribe("slow-subscriber")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Channel buffer is 100; publish past it to prove we never block.
		for i := 0; i < 250; i++ {
			b.Publish(EventTypeStatus, StatusEvent("generating", "still going"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe("collector")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(EventTypeStatus, StatusEvent("generating", "parallel"))
		}()
	}
	wg.Wait()

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, 10, received)
			return
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(EventTypeComplete))
	assert.True(t, IsTerminal(EventTypeError))
	assert.False(t, IsTerminal(EventTypeFileChunk))
	assert.False(t, IsTerminal(EventTypeStatus))
}
