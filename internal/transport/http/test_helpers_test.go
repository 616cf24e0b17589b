package http

import (
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/config"
	"github.com/puzzlink/puzzlink-server/internal/core"
	"github.com/puzzlink/puzzlink-server/internal/pubsub/hub"
	"github.com/puzzlink/puzzlink-server/internal/store/sqlite"
)

type testEnv struct {
	server     *stdhttp.Server
	store      *sqlite.SQLiteStore
	authorizer *auth.Authorizer
	hub        *hub.Hub
}

// newTestEnv wires a full server over an in-memory store and the local hub.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testStore, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { testStore.Close() })

	disabledLogger := zerolog.New(nil)

	authorizer := auth.NewAuthorizer(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "puzzlink-server",
		Audience: "puzzlink-transport",
		TTL:      time.Minute,
	})

	localHub := hub.New(authorizer, &disabledLogger)
	broadcaster := core.NewBroadcaster(localHub, &disabledLogger)

	cfg := config.Default()
	cfg.Addr = ":0"

	server := NewServer(authorizer, testStore, broadcaster, localHub, &cfg, &disabledLogger)

	return &testEnv{
		server:     server,
		store:      testStore,
		authorizer: authorizer,
		hub:        localHub,
	}
}

func testChatEnvelope(roomID, senderID, text string) core.Envelope {
	emittedAt := time.Now().UTC()
	return core.Envelope{
		Type:     core.EventChatMessage,
		RoomID:   roomID,
		SenderID: senderID,
		Payload: core.ChatPayload{
			Text:      text,
			SenderID:  senderID,
			EmittedAt: emittedAt,
		},
		EmittedAt: emittedAt,
	}
}
