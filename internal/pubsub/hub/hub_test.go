package hub

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/core"
)

func newTestHub(tb testing.TB) (*Hub, *auth.Authorizer) {
	tb.Helper()
	authorizer := auth.NewAuthorizer(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "puzzlink-server",
		Audience: "puzzlink-transport",
		TTL:      time.Minute,
	})
	logger := zerolog.New(nil)
	return New(authorizer, &logger), authorizer
}

func mustEnvelope(t *testing.T, ch <-chan core.Envelope) core.Envelope {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected envelope not received")
	}
	return core.Envelope{}
}

func TestSubscribeAndReceive(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := h.Subscribe(ctx, "conn-1", "room-42", "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	want := core.Envelope{Type: core.EventChatMessage, RoomID: "42", SenderID: "u1"}
	if err := h.Trigger(ctx, "room-42", want); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	got := mustEnvelope(t, events)
	if got.Type != want.Type || got.RoomID != want.RoomID || got.SenderID != want.SenderID {
		t.Errorf("unexpected envelope: %+v", got)
	}
}

func TestFanoutReachesAllSubscribers(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var streams []<-chan core.Envelope
	for _, conn := range []string{"conn-1", "conn-2", "conn-3"} {
		events, _, err := h.Subscribe(ctx, conn, "room-42", "")
		if err != nil {
			t.Fatalf("subscribe %s failed: %v", conn, err)
		}
		streams = append(streams, events)
	}

	if err := h.Trigger(ctx, "room-42", core.Envelope{Type: core.EventPieceMoved, RoomID: "42"}); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	for i, events := range streams {
		ev := mustEnvelope(t, events)
		if ev.Type != core.EventPieceMoved {
			t.Errorf("subscriber %d got unexpected envelope: %+v", i, ev)
		}
	}
}

func TestTriggerScopedToChannel(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, _, err := h.Subscribe(ctx, "conn-1", "room-other", "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := h.Trigger(ctx, "room-42", core.Envelope{Type: core.EventChatMessage}); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	select {
	case ev := <-other:
		t.Errorf("subscriber of another room received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTriggerEmptyChannelSucceeds(t *testing.T) {
	h, _ := newTestHub(t)

	if err := h.Trigger(context.Background(), "room-empty", core.Envelope{Type: core.EventPuzzleCompleted}); err != nil {
		t.Fatalf("publishing into an empty room must succeed, got %v", err)
	}
}

func TestPresenceSubscriptionRequiresBoundToken(t *testing.T) {
	h, authorizer := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// No token at all.
	if _, _, err := h.Subscribe(ctx, "conn-1", "presence-room-42", ""); err == nil {
		t.Fatal("expected subscribe without token to fail on presence channel")
	}

	grant, err := authorizer.Authorize("conn-1", "presence-room-42", nil)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}

	// Token bound to another connection.
	if _, _, err := h.Subscribe(ctx, "conn-2", "presence-room-42", grant.Token); err == nil {
		t.Fatal("expected subscribe with foreign token to fail")
	}

	// Token bound to another channel.
	if _, _, err := h.Subscribe(ctx, "conn-1", "presence-room-43", grant.Token); err == nil {
		t.Fatal("expected subscribe on other channel to fail")
	}

	if _, _, err := h.Subscribe(ctx, "conn-1", "presence-room-42", grant.Token); err != nil {
		t.Fatalf("subscribe with matching token failed: %v", err)
	}
}

func TestUnsubscribeGarbageCollectsChannel(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, unsubscribe, err := h.Subscribe(ctx, "conn-1", "room-42", "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if h.SubscriberCount("room-42") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.SubscriberCount("room-42"))
	}

	unsubscribe()
	if h.SubscriberCount("room-42") != 0 {
		t.Errorf("expected channel to be garbage-collected")
	}

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestContextCancellationUnsubscribes(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, _, err := h.Subscribe(ctx, "conn-1", "room-42", "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	cancel()

	// Stream closes once the ctx-driven cleanup runs.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after context cancellation")
		}
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.Trigger(ctx, "room-42", core.Envelope{Type: core.EventChatMessage}); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	events, _, err := h.Subscribe(ctx, "conn-1", "room-42", "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	select {
	case ev := <-events:
		t.Errorf("late subscriber received earlier event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// A publish racing a disconnect must never send on the closed stream.
func TestConcurrentTriggerAndUnsubscribe(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	const rounds = 2000
	for i := 0; i < rounds; i++ {
		events, unsubscribe, err := h.Subscribe(ctx, "conn-1", "room-42", "")
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = h.Trigger(ctx, "room-42", core.Envelope{Type: core.EventPieceMoved, RoomID: "42"})
			}()
		}
		unsubscribe()
		wg.Wait()

		// Drain whatever landed before the unsubscribe; the closed stream
		// ends the loop.
		for range events {
		}
	}
}

func TestUnsubscribeStopsContextWatcher(t *testing.T) {
	h, _ := newTestHub(t)

	before := runtime.NumGoroutine()

	// A non-cancellable context leaves cleanup entirely to the returned
	// cancel func; the per-subscription watcher must still exit.
	const subs = 50
	for i := 0; i < subs; i++ {
		_, unsubscribe, err := h.Subscribe(context.Background(), "conn-1", "room-42", "")
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		unsubscribe()
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if runtime.NumGoroutine() <= before+5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
