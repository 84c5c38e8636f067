package handlers

import (
	"net/http"
	"time"

	"github.com/robonova/competition-core/middleware"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/services"
)

type SessionHandler struct {
	sessions *services.SessionService
}

func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	TournamentID int        `json:"tournament_id"`
	CategoryID   int        `json:"category_id"`
	MatchID      *int       `json:"match_id"`
	TeamID       int        `json:"team_id"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	sess := &models.LiveScoringSession{
		TournamentID: req.TournamentID,
		CategoryID:   req.CategoryID,
		MatchID:      req.MatchID,
		TeamID:       req.TeamID,
	}
	if req.ScheduledAt != nil {
		sess.ScheduledAt = *req.ScheduledAt
	}
	if err := h.sessions.Create(r.Context(), sess); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, sess, nil)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess, nil)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sessions, err := h.sessions.ListByTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil)
}

func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sess, err := h.sessions.Activate(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess, nil)
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req pauseRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	sess, err := h.sessions.Pause(r.Context(), id, req.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess, nil)
}

func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sess, err := h.sessions.Resume(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess, nil)
}

type completeRequest struct {
	Force bool `json:"force"`
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req completeRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	role, err := middleware.GetRoleFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	agg, err := h.sessions.Complete(r.Context(), id, req.Force, role)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, agg, nil)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req cancelRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	role, err := middleware.GetRoleFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	sess, err := h.sessions.Cancel(r.Context(), id, userID, role, req.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess, nil)
}
