package http

import (
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/core"
	"github.com/puzzlink/puzzlink-server/internal/pubsub/hub"
	"github.com/puzzlink/puzzlink-server/internal/utils"
)

// Outbound frame types for the subscriber bridge.
const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound is the envelope for frames sent to a subscriber.
type Outbound struct {
	Type  string         `json:"type"`
	Event *core.Envelope `json:"event,omitempty"`
	Error *FrameError    `json:"error,omitempty"`
}

// FrameError describes a protocol-level error frame.
type FrameError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// WSHandler bridges websocket connections to the local hub transport.
// Frames flow outbound only: the subscriber never publishes through this
// socket, it publishes through the REST API like every other client.
type WSHandler struct {
	hub *hub.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new websocket subscriber handler.
func NewWSHandler(h *hub.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: h, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	query := r.URL.Query()
	connectionID := query.Get("connection_id")
	if connectionID == "" {
		connectionID = utils.NewConnectionID()
	}
	channelName := query.Get("channel")
	token := query.Get("auth")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// Outbound-only socket; CloseRead surfaces client disconnect via ctx.
	ctx := conn.CloseRead(r.Context())

	events, unsubscribe, err := h.hub.Subscribe(ctx, connectionID, channelName, token)
	if err != nil {
		h.log.Debug().Err(err).
			Str("connection_id", connectionID).
			Str("channel", channelName).
			Msg("ws subscribe rejected")
		frame := Outbound{Type: OutboundTypeError, Error: &FrameError{Code: core.ErrCodeUnauthorized, Msg: err.Error()}}
		_ = wsjson.Write(ctx, conn, frame)
		conn.Close(websocket.StatusPolicyViolation, "subscription rejected")
		return
	}
	defer unsubscribe()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "unsubscribed")
				return
			}
			if err := wsjson.Write(ctx, conn, Outbound{Type: OutboundTypeEvent, Event: &event}); err != nil {
				h.log.Debug().Err(err).Str("connection_id", connectionID).Msg("write ws event")
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closing")
			return
		}
	}
}
