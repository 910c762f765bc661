package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionCreatedEvent, 1)

	unsub := bus.Subscribe(func(e SessionCreatedEvent) {
		received <- e
	})
	defer unsub()

	event := SessionCreatedEvent{
		SessionID: "abc",
		Display:   ":99",
		Quality:   "720p",
		Codec:     "libx264",
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.SessionID != event.SessionID {
		t.Errorf("Expected session_id %s, got %s", event.SessionID, got.SessionID)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan SessionEndedEvent, 1)
	received2 := make(chan SessionEndedEvent, 1)

	unsub1 := bus.Subscribe(func(e SessionEndedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e SessionEndedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(SessionEndedEvent{SessionID: "abc", Reason: "encoder_exit"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SubscriberDroppedEvent, 1)

	unsub := bus.Subscribe(func(e SubscriberDroppedEvent) {
		received <- e
	})

	bus.Publish(SubscriberDroppedEvent{SessionID: "abc"})
	<-received

	unsub()

	bus.Publish(SubscriberDroppedEvent{SessionID: "def"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	createdReceived := make(chan bool, 1)
	endedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ SessionCreatedEvent) {
		createdReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ SessionEndedEvent) {
		endedReceived <- true
	})
	defer unsub2()

	bus.Publish(SessionCreatedEvent{SessionID: "abc"})
	<-createdReceived

	select {
	case <-endedReceived:
		t.Fatal("Ended subscriber should NOT have received SessionCreatedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(SessionEndedEvent{SessionID: "abc"})
	<-endedReceived
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ SubscriberJoinedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				bus.Publish(SubscriberJoinedEvent{
					SessionID: "abc",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for k := 0; k < expected; k++ {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"SessionCreated", SessionCreatedEvent{SessionID: "abc"}},
		{"SessionEnded", SessionEndedEvent{SessionID: "abc", Reason: "shutdown"}},
		{"SubscriberJoined", SubscriberJoinedEvent{SessionID: "abc"}},
		{"SubscriberLeft", SubscriberLeftEvent{SessionID: "abc"}},
		{"SubscriberDropped", SubscriberDroppedEvent{SessionID: "abc"}},
		{"EncoderFatal", EncoderFatalEvent{SessionID: "abc", Message: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case SessionCreatedEvent:
				unsub = bus.Subscribe(func(e SessionCreatedEvent) { received <- e })
			case SessionEndedEvent:
				unsub = bus.Subscribe(func(e SessionEndedEvent) { received <- e })
			case SubscriberJoinedEvent:
				unsub = bus.Subscribe(func(e SubscriberJoinedEvent) { received <- e })
			case SubscriberLeftEvent:
				unsub = bus.Subscribe(func(e SubscriberLeftEvent) { received <- e })
			case SubscriberDroppedEvent:
				unsub = bus.Subscribe(func(e SubscriberDroppedEvent) { received <- e })
			case EncoderFatalEvent:
				unsub = bus.Subscribe(func(e EncoderFatalEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}
