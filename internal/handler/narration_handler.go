package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/narration"
	"github.com/stemsi/interview-backend/internal/response"
	"github.com/stemsi/interview-backend/internal/validator"
)

// Narrator is the narration cache as seen by the transport layer.
type Narrator interface {
	Available() bool
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, bool, error)
	Clear()
	Stats() narration.Stats
	Voices(ctx context.Context) []narration.Voice
}

// NarrationHandler serves synthesized speech for agent messages.
type NarrationHandler struct {
	narrator Narrator
	log      zerolog.Logger
}

// NewNarrationHandler creates a new NarrationHandler.
func NewNarrationHandler(narrator Narrator, log zerolog.Logger) *NarrationHandler {
	return &NarrationHandler{
		narrator: narrator,
		log:      log.With().Str("component", "narration_handler").Logger(),
	}
}

// Synthesize godoc
// POST /api/v1/narration
// Returns audio/mpeg when the client accepts it, base64 JSON otherwise.
func (h *NarrationHandler) Synthesize(c *gin.Context) {
	var req model.NarrationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	audio, hit, err := h.narrator.Synthesize(c.Request.Context(), req.Text, req.VoiceID)
	switch {
	case errors.Is(err, narration.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrTTSUnavailable)
		return
	case err != nil:
		h.log.Warn().Err(err).Msg("Narration failed")
		response.Fail(c, http.StatusBadGateway, response.ErrTTSFailed)
		return
	}

	cache := "MISS"
	if hit {
		cache = "HIT"
	}
	c.Header("X-Narration-Cache", cache)

	if strings.Contains(c.GetHeader("Accept"), "audio/mpeg") {
		c.Data(http.StatusOK, "audio/mpeg", audio)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
		"content_type": "audio/mpeg",
		"cached":       hit,
	})
}

// ListVoices godoc
// GET /api/v1/narration/voices
func (h *NarrationHandler) ListVoices(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"voices": h.narrator.Voices(c.Request.Context())})
}

// Status godoc
// GET /api/v1/narration/status
func (h *NarrationHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"available": h.narrator.Available(),
		"cache":     h.narrator.Stats(),
	})
}

// ClearCache godoc
// DELETE /api/v1/narration/cache
func (h *NarrationHandler) ClearCache(c *gin.Context) {
	h.narrator.Clear()
	response.Success(c, http.StatusOK, gin.H{"status": "cleared"})
}
