package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/interview"
	"github.com/stemsi/interview-backend/internal/middleware"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/response"
	"github.com/stemsi/interview-backend/internal/transport"
	"github.com/stemsi/interview-backend/internal/validator"
	ws "github.com/stemsi/interview-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Subscriber attaches connections to a session's broadcast group.
type Subscriber interface {
	Subscribe(sessionID uuid.UUID) *transport.Subscription
}

// WSHandler streams an interview session over a websocket. Commands read
// from the socket go through the state machine; every session event is
// pushed to all of the session's connections.
type WSHandler struct {
	interviews InterviewService
	hub        Subscriber
	limiter    *middleware.RateLimiter
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. limiter may be nil.
func NewWSHandler(interviews InterviewService, hub Subscriber, limiter *middleware.RateLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		hub:        hub,
		limiter:    limiter,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// InterviewStream godoc
// WS /ws/v1/interviews/:id/stream
func (h *WSHandler) InterviewStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID := middleware.GetSessionID(c)

	// Ownership is checked before the upgrade so failures are plain HTTP errors.
	data, err := h.interviews.GetSessionData(c.Request.Context(), sessionID, claims.CandidateID)
	if err != nil {
		status, code := serviceError(err)
		response.Fail(c, status, code)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("candidate_id", claims.CandidateID).
		Str("session_id", sessionID.String()).
		Logger()

	sub := h.hub.Subscribe(sessionID)
	defer sub.Close()

	if err := conn.WriteTyped(ws.ConnectedResponse{Event: ws.EventConnected, Session: data.Session, Problem: data.Problem}); err != nil {
		return
	}
	go h.pump(conn, sub, wsLog)

	wsLog.Info().Msg("Candidate connected")
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if env.Action == ws.ActionPing {
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		}
		if h.limiter != nil && !h.limiter.Allow("candidate:"+strconv.Itoa(claims.CandidateID)) {
			_ = conn.WriteError(response.GetMessage(response.ErrRateLimitExceeded), nil)
			continue
		}

		h.dispatch(c.Request.Context(), conn, wsLog, sessionID, claims.CandidateID, env)
	}
}

// pump forwards broadcast events until the subscription ends. A detached
// (slow) subscriber gets its socket closed so the client reconnects and
// resynchronises instead of silently missing events.
func (h *WSHandler) pump(conn *ws.Conn, sub *transport.Subscription, log zerolog.Logger) {
	for ev := range sub.C {
		if err := conn.WriteTyped(ws.BroadcastResponse{Event: ws.Event(ev.Type), Data: ev}); err != nil {
			log.Debug().Err(err).Msg("Broadcast write failed")
			break
		}
	}
	_ = conn.Close()
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, log zerolog.Logger, sessionID uuid.UUID, candidateID int, env ws.RequestEnvelope) {
	var err error
	switch env.Action {
	case ws.ActionChatMessage:
		var req model.ChatMessageRequest
		if !decode(conn, env, &req) {
			return
		}
		_, err = h.interviews.SubmitChatMessage(ctx, sessionID, candidateID, req.Message)

	case ws.ActionCodeSubmission:
		var req model.SubmitCodeRequest
		if !decode(conn, env, &req) {
			return
		}
		_, err = h.interviews.SubmitCode(ctx, sessionID, candidateID, req)

	case ws.ActionRequestHint:
		req := model.HintRequest{Level: 1}
		if !decode(conn, env, &req) {
			return
		}
		if req.Level == 0 {
			req.Level = 1
		}
		_, err = h.interviews.RequestHint(ctx, sessionID, candidateID, req.Level)

	case ws.ActionAnalyzeCode:
		var req model.CodeAnalysisRequest
		if !decode(conn, env, &req) {
			return
		}
		_, err = h.interviews.RequestCodeAnalysis(ctx, sessionID, candidateID, req)

	case ws.ActionEndInterview:
		_, err = h.interviews.EndSession(ctx, sessionID, candidateID)

	case "":
		_ = conn.WriteError(response.GetMessage(response.ErrInvalidPayload), nil)
		return

	default:
		log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
		_ = conn.WriteError("unknown action: "+string(env.Action), nil)
		return
	}

	if err != nil {
		status, code := serviceError(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("action", string(env.Action)).Msg("Action failed")
		}
		_ = conn.WriteError(response.GetMessage(code), nil)
		return
	}
	_ = conn.WriteTyped(ws.AckResponse{Event: ws.EventAck, Action: env.Action, Status: "ok"})
}

// decode parses the frame into dst and validates it, reporting problems
// to the client.
func decode(conn *ws.Conn, env ws.RequestEnvelope, dst any) bool {
	if err := json.Unmarshal(env.Raw, dst); err != nil {
		_ = conn.WriteError(response.GetMessage(response.ErrInvalidPayload), nil)
		return false
	}
	if fields := validator.Validate(dst); fields != nil {
		_ = conn.WriteError(response.GetMessage(response.ErrValidation), fields)
		return false
	}
	return true
}

var _ InterviewService = (*interview.Service)(nil)
