package redis

import (
	"context"
	"testing"
	"time"

	"expo-quiz-service/internal/domain"
)

func TestFeedDeliversEvents(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	feed := NewFeed(client)

	events, cancel, err := feed.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	sent := domain.Event{Kind: domain.EventSession, SessionID: "session-1", At: time.Now().UTC()}
	if err := feed.Publish(ctx, sent); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Kind != domain.EventSession || got.SessionID != "session-1" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestFeedCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(newTestClient(t))

	events, cancel, err := feed.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	// After cancel the channel drains and closes; publishing must not panic.
	if err := feed.Publish(ctx, domain.Event{Kind: domain.EventAnswer}); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected channel to close after cancel")
		}
	}
}
