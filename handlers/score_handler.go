package handlers

import (
	"net/http"
	"time"

	"github.com/robonova/competition-core/middleware"
	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/services"
)

type ScoreHandler struct {
	scoring *services.ScoringService
}

func NewScoreHandler(scoring *services.ScoringService) *ScoreHandler {
	return &ScoreHandler{scoring: scoring}
}

type submitScoreRequest struct {
	CriterionID int       `json:"criterion_id"`
	Value       float64   `json:"value"`
	Sequence    int64     `json:"sequence"`
	ClientTime  time.Time `json:"client_time"`
}

// Submit accepts one score update from the authenticated judge. The judge
// identity comes from the token, never the body.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req submitScoreRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	judgeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.scoring.SubmitScore(r.Context(), models.ScoreUpdate{
		SessionID:   sessionID,
		JudgeID:     judgeID,
		CriterionID: req.CriterionID,
		Value:       req.Value,
		Sequence:    req.Sequence,
		ClientTime:  req.ClientTime,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, result, nil)
}

func (h *ScoreHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	agg, err := h.scoring.Aggregate(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	role, roleErr := middleware.GetRoleFromContext(r.Context())
	if roleErr != nil || role == services.RoleSpectator {
		agg = agg.Redacted()
	}
	_ = writeJSON(w, http.StatusOK, agg, nil)
}

func (h *ScoreHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	sessionID, err := urlParamInt(r, "sessionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	conflicts, err := h.scoring.ListOpenConflicts(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"conflicts": conflicts}, nil)
}

type resolveConflictRequest struct {
	Action        models.ResolutionAction `json:"action"`
	OverrideValue *float64                `json:"override_value"`
	Rationale     string                  `json:"rationale"`
}

func (h *ScoreHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	conflictID, err := urlParamInt(r, "conflictID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req resolveConflictRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	resolverID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	agg, err := h.scoring.ResolveConflict(r.Context(), conflictID, resolverID, req.Action, req.OverrideValue, req.Rationale)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, agg, nil)
}
