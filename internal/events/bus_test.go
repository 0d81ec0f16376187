package events

import (
	"sync"
	"testing"
)

func TestPublishDelivers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventCatalogUpdated)

	bus.Publish(EventCatalogUpdated, Payload{"fingerprint": "abc"})

	select {
	case payload := <-sub:
		if payload["fingerprint"] != "abc" {
			t.Errorf("payload = %v", payload)
		}
	default:
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlayerStarted)

	bus.Unsubscribe(EventPlayerStarted, sub)
	bus.Unsubscribe(EventPlayerStarted, sub)

	if _, ok := <-sub; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestPublishAfterUnsubscribeDropsEvent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlayerStarted)
	bus.Unsubscribe(EventPlayerStarted, sub)

	// Must not panic on the closed channel.
	bus.Publish(EventPlayerStarted, Payload{"pid": 1})
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	subs := make([]Subscriber, 32)
	for i := range subs {
		subs[i] = bus.Subscribe(EventCatalogUpdated)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			bus.Publish(EventCatalogUpdated, Payload{"seq": i})
		}
	}()
	go func() {
		defer wg.Done()
		for _, sub := range subs {
			bus.Unsubscribe(EventCatalogUpdated, sub)
		}
	}()
	wg.Wait()
}
