package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ws_probe authorizes a connection, subscribes to a room's presence channel
// over the local-hub websocket bridge, publishes one chat message through the
// REST API and prints every frame it receives until the timeout.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_probe: %v", err)
		os.Exit(1)
	}
}

type authRequest struct {
	ConnectionID string       `json:"connection_id"`
	ChannelName  string       `json:"channel_name"`
	Identity     *authPayload `json:"identity,omitempty"`
}

type authPayload struct {
	ID string `json:"id"`
}

type authResponse struct {
	Auth     string      `json:"auth"`
	Identity authPayload `json:"identity"`
}

type publishRequest struct {
	Text     string `json:"text"`
	SenderID string `json:"sender_id"`
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	room := flag.String("room", "probe", "room id")
	conn := flag.String("conn", "probe-conn", "connection id")
	user := flag.String("user", "", "user id (anonymous when empty)")
	text := flag.String("text", "hello from ws probe", "chat text to publish")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	channelName := "presence-room-" + *room

	var identity *authPayload
	if *user != "" {
		identity = &authPayload{ID: *user}
	}
	grant, err := authorize(ctx, *base, authRequest{
		ConnectionID: *conn,
		ChannelName:  channelName,
		Identity:     identity,
	})
	if err != nil {
		return err
	}
	fmt.Printf("authorized for %s as %s\n", channelName, grant.Identity.ID)

	// Events fan out on the room's public broadcast channel.
	wsURL := strings.Replace(*base, "http", "ws", 1) +
		"/ws?connection_id=" + *conn + "&channel=room-" + *room
	socket, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer socket.Close(websocket.StatusNormalClosure, "bye")

	if err := publishChat(ctx, *base, *room, *text, grant.Identity.ID); err != nil {
		return err
	}

	for {
		var frame map[string]any
		if err := wsjson.Read(ctx, socket, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		out, _ := json.Marshal(frame)
		fmt.Printf("frame: %s\n", out)
	}
}

func authorize(ctx context.Context, base string, req authRequest) (*authResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal auth request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/channel/auth", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: status %d", resp.StatusCode)
	}

	var grant authResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &grant, nil
}

func publishChat(ctx context.Context, base, room, text, senderID string) error {
	body, err := json.Marshal(publishRequest{Text: text, SenderID: senderID})
	if err != nil {
		return fmt.Errorf("marshal publish request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/rooms/"+room+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("publish: status %d", resp.StatusCode)
	}
	return nil
}
