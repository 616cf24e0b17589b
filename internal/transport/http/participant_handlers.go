package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/core"
	"github.com/puzzlink/puzzlink-server/internal/store"
)

// ParticipantHandlers provides HTTP handlers for the participant registry.
type ParticipantHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewParticipantHandlers creates a new participant handlers instance.
func NewParticipantHandlers(st store.Store, logger *zerolog.Logger) *ParticipantHandlers {
	return &ParticipantHandlers{
		store: st,
		log:   logger,
	}
}

// RegisterProfileRequest represents the profile registration request body.
// Optional fields left empty keep their previously stored values.
type RegisterProfileRequest struct {
	ConnectionID  string `json:"connection_id" binding:"required"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	GenderTag     string `json:"gender_tag,omitempty"`
	PreferenceTag string `json:"preference_tag,omitempty"`
}

// RegisterProfileResponse represents the profile registration response body.
type RegisterProfileResponse struct {
	Success bool `json:"success"`
}

// ProfileResponse represents a stored profile in API responses.
type ProfileResponse struct {
	ConnectionID  string `json:"connection_id"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	GenderTag     string `json:"gender_tag,omitempty"`
	PreferenceTag string `json:"preference_tag,omitempty"`
	RegisteredAt  string `json:"registered_at"`
	UpdatedAt     string `json:"updated_at"`
}

// RegisterProfile upserts a participant profile keyed by connection id.
// POST /api/participants
func (h *ParticipantHandlers) RegisterProfile(c *gin.Context) {
	var req RegisterProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register profile request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	p := store.Participant{
		ConnectionID:  req.ConnectionID,
		UserID:        req.UserID,
		DisplayName:   req.DisplayName,
		GenderTag:     req.GenderTag,
		PreferenceTag: req.PreferenceTag,
	}
	if err := h.store.UpsertParticipant(c.Request.Context(), p); err != nil {
		h.log.Error().Err(err).Str("connection_id", req.ConnectionID).Msg("failed to upsert participant")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to store profile", Code: core.ErrCodeStorageError})
		return
	}

	h.log.Debug().Str("connection_id", req.ConnectionID).Msg("participant registered")
	c.JSON(http.StatusOK, RegisterProfileResponse{Success: true})
}

// GetProfile returns a stored participant profile.
// GET /api/participants/:connectionID
func (h *ParticipantHandlers) GetProfile(c *gin.Context) {
	connectionID := c.Param("connectionID")

	p, err := h.store.GetParticipant(c.Request.Context(), connectionID)
	if err != nil {
		if errors.Is(err, store.ErrParticipantNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "participant not found", Code: core.ErrCodeNotFound})
			return
		}
		h.log.Error().Err(err).Str("connection_id", connectionID).Msg("failed to get participant")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read profile", Code: core.ErrCodeStorageError})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ConnectionID:  p.ConnectionID,
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		GenderTag:     p.GenderTag,
		PreferenceTag: p.PreferenceTag,
		RegisteredAt:  p.RegisteredAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	})
}
