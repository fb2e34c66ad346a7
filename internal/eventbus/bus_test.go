package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBusSubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 10)
	bus.Subscribe(received)

	bus.Publish(Event{
		ScanID:         7,
		Status:         "scraping",
		SnapshotName:   "2026-07-29",
		TotalExtracted: 100,
		Timestamp:      time.Now(),
	})

	select {
	case evt := <-received:
		if evt.Status != "scraping" {
			t.Errorf("expected scraping, got %s", evt.Status)
		}
		if evt.ScanID != 7 {
			t.Errorf("expected scan id 7, got %d", evt.ScanID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan Event, 10)
	ch2 := make(chan Event, 10)
	bus.Subscribe(ch1)
	bus.Subscribe(ch2)

	bus.Publish(Event{Status: "completed"})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusPublishAfterCloseIsNoop(t *testing.T) {
	bus := New()
	ch := make(chan Event, 10)
	bus.Subscribe(ch)
	bus.Close()

	bus.Publish(Event{Status: "stopped"})

	select {
	case <-ch:
		t.Fatal("Publish after Close should not deliver")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBusPublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 100)
	bus.Subscribe(received)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			bus.Publish(Event{ScanID: id, Status: "scraping"})
		}(int64(i))
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}
