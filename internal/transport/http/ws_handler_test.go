package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestWSSubscriberReceivesPublishedEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Authorize the connection for the presence channel first.
	resp := postJSON(t, env.server.Handler, "/api/channel/auth",
		`{"connection_id":"conn-1","channel_name":"presence-room-42","identity":{"id":"u1"}}`)
	if resp.Code != stdhttp.StatusOK {
		t.Fatalf("auth failed: %d %s", resp.Code, resp.Body.String())
	}
	var grant ChannelAuthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &grant); err != nil {
		t.Fatalf("failed to unmarshal auth response: %v", err)
	}

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) +
		"/ws?connection_id=conn-1&channel=presence-room-42&auth=" + grant.Auth
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Give the subscription a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	env.hub.Trigger(ctx, "presence-room-42", testChatEnvelope("42", "u2", "hello"))

	var frame Outbound
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("failed to read ws frame: %v", err)
	}
	if frame.Type != OutboundTypeEvent || frame.Event == nil {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if frame.Event.RoomID != "42" || frame.Event.SenderID != "u2" {
		t.Errorf("unexpected event: %+v", frame.Event)
	}
}

func TestWSRejectsUnauthorizedPresenceSubscription(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) +
		"/ws?connection_id=conn-1&channel=presence-room-42"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		// Some servers reject during the handshake already; that is fine too.
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var frame Outbound
	if err := wsjson.Read(ctx, conn, &frame); err == nil {
		if frame.Type != OutboundTypeError || frame.Error == nil {
			t.Fatalf("expected error frame, got %+v", frame)
		}
		return
	}
	// A read error here means the server closed the socket, which is the
	// expected rejection path as well.
}

func TestWSPublicChannelNeedsNoToken(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws?channel=room-42"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	time.Sleep(50 * time.Millisecond)

	resp := postJSON(t, env.server.Handler, "/api/rooms/42/chat", `{"text":"hey","sender_id":"u1"}`)
	if resp.Code != stdhttp.StatusOK {
		t.Fatalf("publish failed: %d %s", resp.Code, resp.Body.String())
	}

	var frame Outbound
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("failed to read ws frame: %v", err)
	}
	if frame.Type != OutboundTypeEvent || frame.Event == nil || frame.Event.Type != "chat-message" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}
