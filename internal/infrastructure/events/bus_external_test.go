package events_test

import (
	"sync"
	"testing"
	"time"

	domainevents "github.com/GSejas/health-watch-sub002/internal/domain/events"
	"github.com/GSejas/health-watch-sub002/internal/infrastructure/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_Subscribe(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			name: "ReturnsChannel",
			test: func(t *testing.T) {
				bus := events.New()
				defer bus.Close()

				ch := bus.Subscribe()
				require.NotNil(t, ch)
			},
		},
		{
			name: "MultipleSubscriptionsIndependent",
			test: func(t *testing.T) {
				bus := events.New()
				defer bus.Close()

				sub1 := bus.Subscribe()
				sub2 := bus.Subscribe()

				evt := domainevents.Event{Kind: domainevents.KindSample, ChannelID: "c1", TimestampMs: 1}
				bus.Publish(evt)

				select {
				case received := <-sub1:
					assert.Equal(t, domainevents.KindSample, received.Kind)
				case <-time.After(100 * time.Millisecond):
					t.Fatal("sub1 did not receive event")
				}

				select {
				case received := <-sub2:
					assert.Equal(t, domainevents.KindSample, received.Kind)
				case <-time.After(100 * time.Millisecond):
					t.Fatal("sub2 did not receive event")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			name: "RemovesSubscriber",
			test: func(t *testing.T) {
				bus := events.New()
				defer bus.Close()

				ch := bus.Subscribe()
				assert.Equal(t, 1, bus.SubscriberCount())

				bus.Unsubscribe(ch)
				assert.Equal(t, 0, bus.SubscriberCount())

				_, ok := <-ch
				assert.False(t, ok, "channel should be closed after unsubscribe")
			},
		},
		{
			name: "IsIdempotent",
			test: func(t *testing.T) {
				bus := events.New()
				defer bus.Close()

				ch := bus.Subscribe()

				bus.Unsubscribe(ch)
				bus.Unsubscribe(ch)
				bus.Unsubscribe(ch)

				assert.Equal(t, 0, bus.SubscriberCount())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func TestBus_Publish_DropsWhenBufferFull(t *testing.T) {
	bus := events.New(events.WithBufferSize(2))
	defer bus.Close()

	ch := bus.Subscribe()

	bus.Publish(domainevents.Event{Kind: domainevents.KindSample})
	bus.Publish(domainevents.Event{Kind: domainevents.KindSample})

	done := make(chan struct{})
	go func() {
		bus.Publish(domainevents.Event{Kind: domainevents.KindSample})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked when buffer was full")
	}

	<-ch
	<-ch
}

func TestBus_Close(t *testing.T) {
	bus := events.New()
	ch := bus.Subscribe()

	bus.Close()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after bus.Close")

	bus.Publish(domainevents.Event{Kind: domainevents.KindSample})

	ch2 := bus.Subscribe()
	_, ok = <-ch2
	assert.False(t, ok, "new subscription after close should return closed channel")
}

func TestBus_ConcurrentAccess(t *testing.T) {
	const numSubscribers = 10
	const numPublishers = 10
	const eventsPerPub = 100

	bus := events.New()
	defer bus.Close()

	var wg sync.WaitGroup

	for i := 0; i < numSubscribers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			count := 0
			timeout := time.After(500 * time.Millisecond)
			for count < eventsPerPub {
				select {
				case <-ch:
					count++
				case <-timeout:
					return
				}
			}
		}()
	}

	for i := 0; i < numPublishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerPub; j++ {
				bus.Publish(domainevents.Event{Kind: domainevents.KindSample})
			}
		}()
	}

	wg.Wait()
}

func TestBus_ImplementsPublisher(t *testing.T) {
	var publisher domainevents.Publisher = events.New()
	require.NotNil(t, publisher)
}
