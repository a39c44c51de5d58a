package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/aicache/event"
)

func TestNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("err = %v, want ErrNilClient", err)
	}
}

func TestPublishRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sub := client.Subscribe(context.Background(), "aicache:events")
	defer sub.Close()
	// Wait for the subscription before publishing.
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := event.Event{
		Type:            event.TypeInvalidation,
		Key:             "k1",
		Reason:          "manual",
		AffectedEntries: 2,
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(context.Background(), want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}

	var got event.Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Type != want.Type || got.Key != want.Key || got.AffectedEntries != 2 {
		t.Fatalf("event = %+v", got)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestCustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub, err := New(Config{Client: client, Channel: "custom:chan"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sub := client.Subscribe(context.Background(), "custom:chan")
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := pub.Publish(context.Background(), event.Event{Type: event.TypeStore}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := sub.ReceiveMessage(ctx); err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
}
