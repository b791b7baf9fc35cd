package event

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	var got []Event
	bus.Subscribe("test.topic", func(_ context.Context, ev Event) {
		got = append(got, ev)
	})

	bus.Publish(context.Background(), Event{Topic: "test.topic", Payload: 42})
	bus.Publish(context.Background(), Event{Topic: "other.topic", Payload: 43})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Payload != 42 {
		t.Errorf("unexpected payload: %v", got[0].Payload)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	count := 0
	bus.SubscribeAll(func(_ context.Context, ev Event) { count++ })

	bus.Publish(context.Background(), Event{Topic: "a"})
	bus.Publish(context.Background(), Event{Topic: "b"})

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	count := 0
	unsub := bus.Subscribe("test.topic", func(_ context.Context, ev Event) { count++ })

	bus.Publish(context.Background(), Event{Topic: "test.topic"})
	unsub()
	bus.Publish(context.Background(), Event{Topic: "test.topic"})

	if count != 1 {
		t.Errorf("expected 1 event after unsubscribe, got %d", count)
	}
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	bus.Subscribe("test.topic", func(_ context.Context, ev Event) {
		panic("boom")
	})
	reached := false
	bus.Subscribe("test.topic", func(_ context.Context, ev Event) {
		reached = true
	})

	bus.Publish(context.Background(), Event{Topic: "test.topic"})

	if !reached {
		t.Error("a panicking handler must not stop later handlers")
	}
}
