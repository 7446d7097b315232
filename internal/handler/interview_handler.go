package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/interview"
	"github.com/stemsi/interview-backend/internal/middleware"
	"github.com/stemsi/interview-backend/internal/model"
	"github.com/stemsi/interview-backend/internal/response"
	"github.com/stemsi/interview-backend/internal/validator"
)

// InterviewService is the session state machine as seen by the transport layer.
type InterviewService interface {
	StartSession(ctx context.Context, candidateID int) (*interview.SessionView, error)
	SubmitChatMessage(ctx context.Context, sessionID uuid.UUID, candidateID int, text string) (*interview.SessionView, error)
	SubmitCode(ctx context.Context, sessionID uuid.UUID, candidateID int, req model.SubmitCodeRequest) (*interview.SessionView, error)
	RequestHint(ctx context.Context, sessionID uuid.UUID, candidateID, level int) (*interview.SessionView, error)
	RequestCodeAnalysis(ctx context.Context, sessionID uuid.UUID, candidateID int, req model.CodeAnalysisRequest) (*interview.SessionView, error)
	EndSession(ctx context.Context, sessionID uuid.UUID, candidateID int) (*interview.SessionView, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID, candidateID int) (*interview.SessionView, error)
	GetSessionData(ctx context.Context, sessionID uuid.UUID, candidateID int) (*interview.SessionData, error)
	ListSessions(ctx context.Context, candidateID, limit int) ([]model.Session, error)
}

// InterviewHandler exposes interview sessions over REST.
type InterviewHandler struct {
	interviews InterviewService
	log        zerolog.Logger
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(interviews InterviewService, log zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		interviews: interviews,
		log:        log.With().Str("component", "interview_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/interviews
// Opens a new session in the preparing state and returns the greeting.
func (h *InterviewHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.interviews.StartSession(c.Request.Context(), claims.CandidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// ListSessions godoc
// GET /api/v1/interviews?limit=20
// Returns the candidate's sessions, newest first. A missing limit means the
// service default; page.limit echoes what was asked for.
func (h *InterviewHandler) ListSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"limit": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	sessions, err := h.interviews.ListSessions(c.Request.Context(), claims.CandidateID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, sessions, limit)
}

// GetSession godoc
// GET /api/v1/interviews/:id
// Returns the session with its transcript, code history and problem.
func (h *InterviewHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	data, err := h.interviews.GetSessionData(c.Request.Context(), middleware.GetSessionID(c), claims.CandidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}

// GetProblem godoc
// GET /api/v1/interviews/:id/problem
// Returns the bound problem, or NO_PROBLEM_BOUND while still preparing.
func (h *InterviewHandler) GetProblem(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	data, err := h.interviews.GetSessionData(c.Request.Context(), middleware.GetSessionID(c), claims.CandidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if data.Problem == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoProblemBound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"problem": data.Problem})
}

// SubmitChatMessage godoc
// POST /api/v1/interviews/:id/messages
func (h *InterviewHandler) SubmitChatMessage(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ChatMessageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.SubmitChatMessage(ctx, id, claims.CandidateID, req.Message)
	})
}

// SubmitCode godoc
// POST /api/v1/interviews/:id/code
func (h *InterviewHandler) SubmitCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.SubmitCode(ctx, id, claims.CandidateID, req)
	})
}

// RequestHint godoc
// POST /api/v1/interviews/:id/hints
// An empty body asks for the first hint.
func (h *InterviewHandler) RequestHint(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	req := model.HintRequest{Level: 1}
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.RequestHint(ctx, id, claims.CandidateID, req.Level)
	})
}

// RequestCodeAnalysis godoc
// POST /api/v1/interviews/:id/analysis
func (h *InterviewHandler) RequestCodeAnalysis(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CodeAnalysisRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.RequestCodeAnalysis(ctx, id, claims.CandidateID, req)
	})
}

// EndSession godoc
// POST /api/v1/interviews/:id/end
// Completes the session; feedback is generated in the background.
func (h *InterviewHandler) EndSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.EndSession(ctx, id, claims.CandidateID)
	})
}

// CancelSession godoc
// POST /api/v1/interviews/:id/cancel
func (h *InterviewHandler) CancelSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.respond(c, func(ctx context.Context, id uuid.UUID) (*interview.SessionView, error) {
		return h.interviews.CancelSession(ctx, id, claims.CandidateID)
	})
}

func (h *InterviewHandler) respond(c *gin.Context, run func(context.Context, uuid.UUID) (*interview.SessionView, error)) {
	view, err := run(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *InterviewHandler) fail(c *gin.Context, err error) {
	status, code := serviceError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Interview request failed")
	}
	response.Fail(c, status, code)
}

// serviceError maps state machine errors onto HTTP status and error code.
func serviceError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, interview.ErrSessionTerminal):
		return http.StatusConflict, response.ErrSessionTerminal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, response.ErrInternal
	}
	return http.StatusInternalServerError, response.ErrInternal
}
