package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/core"
)

// PublishHandlers provides HTTP handlers for room event publishing.
type PublishHandlers struct {
	broadcaster *core.Broadcaster
	log         *zerolog.Logger
}

// NewPublishHandlers creates a new publish handlers instance.
func NewPublishHandlers(broadcaster *core.Broadcaster, logger *zerolog.Logger) *PublishHandlers {
	return &PublishHandlers{
		broadcaster: broadcaster,
		log:         logger,
	}
}

// ChatRequest represents the chat publish request body.
type ChatRequest struct {
	Text     string `json:"text" binding:"required"`
	SenderID string `json:"sender_id" binding:"required"`
}

// MoveRequest represents the piece move publish request body.
type MoveRequest struct {
	PieceID    string        `json:"piece_id" binding:"required"`
	CurrentPos core.Position `json:"current_pos"`
	SenderID   string        `json:"sender_id" binding:"required"`
}

// CompleteRequest represents the completion publish request body.
type CompleteRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
}

// PublishResponse represents a publish response body.
type PublishResponse struct {
	Success        bool   `json:"success"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
	EmittedAt      string `json:"emitted_at,omitempty"`
}

// Chat publishes a chat message to a room.
// POST /api/rooms/:roomID/chat
func (h *PublishHandlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid chat request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	receipt, err := h.broadcaster.PublishChat(c.Request.Context(), c.Param("roomID"), req.Text, req.SenderID)
	if err != nil {
		h.respondPublishError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishResponse{
		Success:        true,
		DeliveryStatus: "accepted",
		EmittedAt:      receipt.EmittedAt.Format(time.RFC3339Nano),
	})
}

// Move publishes a piece position update to a room.
// POST /api/rooms/:roomID/move
func (h *PublishHandlers) Move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid move request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	if _, err := h.broadcaster.PublishMove(c.Request.Context(), c.Param("roomID"), req.PieceID, req.CurrentPos, req.SenderID); err != nil {
		h.respondPublishError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishResponse{Success: true})
}

// Complete publishes a puzzle completion to a room.
// POST /api/rooms/:roomID/complete
func (h *PublishHandlers) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid complete request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	if _, err := h.broadcaster.PublishCompletion(c.Request.Context(), c.Param("roomID"), req.SenderID); err != nil {
		h.respondPublishError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishResponse{Success: true})
}

func (h *PublishHandlers) respondPublishError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyRoomID),
		errors.Is(err, core.ErrEmptySenderID),
		errors.Is(err, core.ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: core.ErrCodeBadRequest})
	case errors.Is(err, core.ErrPublishRejected):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "event was not accepted by the transport", Code: core.ErrCodePublishFailed})
	default:
		h.log.Error().Err(err).Msg("unexpected publish error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: core.ErrCodePublishFailed})
	}
}
