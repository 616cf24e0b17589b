package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/core"
)

// AuthHandlers provides HTTP handlers for channel authorization.
type AuthHandlers struct {
	authorizer *auth.Authorizer
	log        *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authorizer *auth.Authorizer, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authorizer: authorizer,
		log:        logger,
	}
}

// IdentityPayload is the optional presence identity in an auth request.
type IdentityPayload struct {
	ID   string         `json:"id"`
	Info map[string]any `json:"info,omitempty"`
}

// ChannelAuthRequest represents the channel authorization request body.
type ChannelAuthRequest struct {
	ConnectionID string           `json:"connection_id" binding:"required"`
	ChannelName  string           `json:"channel_name" binding:"required"`
	Identity     *IdentityPayload `json:"identity,omitempty"`
}

// ChannelAuthResponse represents the channel authorization response body.
type ChannelAuthResponse struct {
	Auth     string          `json:"auth"`
	Identity IdentityPayload `json:"identity"`
}

// ChannelAuth authorizes a connection to subscribe to a channel.
// POST /api/channel/auth
func (h *AuthHandlers) ChannelAuth(c *gin.Context) {
	var req ChannelAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid channel auth request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	var identity *auth.Identity
	if req.Identity != nil {
		identity = &auth.Identity{UserID: req.Identity.ID, Info: req.Identity.Info}
	}

	grant, err := h.authorizer.Authorize(req.ConnectionID, req.ChannelName, identity)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMalformedRequest):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: core.ErrCodeBadRequest})
		case errors.Is(err, auth.ErrSigningUnavailable):
			h.log.Warn().Str("channel", req.ChannelName).Msg("authorization unavailable: no signing secret")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "realtime authorization unavailable", Code: core.ErrCodeUnauthorized})
		default:
			h.log.Error().Err(err).Str("channel", req.ChannelName).Msg("failed to authorize channel")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: core.ErrCodeUnauthorized})
		}
		return
	}

	h.log.Debug().
		Str("connection_id", req.ConnectionID).
		Str("channel", req.ChannelName).
		Str("user_id", grant.Identity.UserID).
		Msg("channel authorized")

	c.JSON(http.StatusOK, ChannelAuthResponse{
		Auth:     grant.Token,
		Identity: IdentityPayload{ID: grant.Identity.UserID, Info: grant.Identity.Info},
	})
}
