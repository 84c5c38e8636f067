package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/scheduler"
	"github.com/robonova/competition-core/services"
)

type MatchHandler struct {
	brackets *services.BracketService
	schedule *services.ScheduleService
}

func NewMatchHandler(brackets *services.BracketService, schedule *services.ScheduleService) *MatchHandler {
	return &MatchHandler{brackets: brackets, schedule: schedule}
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.brackets.StartMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, match, nil)
}

type reportResultRequest struct {
	Score1 float64 `json:"score1"`
	Score2 float64 `json:"score2"`
}

func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.brackets.ReportResult(r.Context(), id, req.Score1, req.Score2)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, match, nil)
}

type forfeitRequest struct {
	TeamID int `json:"team_id"`
}

func (h *MatchHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req forfeitRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.brackets.ForfeitMatch(r.Context(), id, req.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, match, nil)
}

type scheduleRequest struct {
	VenueID     int       `json:"venue_id"`
	TableNumber int       `json:"table_number"`
	SlotStart   time.Time `json:"slot_start"`
	SlotEnd     time.Time `json:"slot_end"`
	JudgePanel  []int     `json:"judge_panel"`
	Confirmed   bool      `json:"confirmed"`
}

func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	h.handleSchedule(w, r, h.schedule.Schedule)
}

func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	h.handleSchedule(w, r, h.schedule.Reschedule)
}

func (h *MatchHandler) handleSchedule(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, sm *models.ScheduledMatch) ([]scheduler.Conflict, error),
) {
	id, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req scheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	sm := &models.ScheduledMatch{
		MatchID:     id,
		VenueID:     req.VenueID,
		TableNumber: req.TableNumber,
		Slot:        models.TimeSlot{Start: req.SlotStart, End: req.SlotEnd},
		JudgePanel:  req.JudgePanel,
		Confirmed:   req.Confirmed,
	}
	conflicts, err := apply(r.Context(), sm)
	if err != nil {
		if errors.Is(err, services.ErrSchedulingConflict) {
			_ = writeJSON(w, http.StatusConflict, jsonResponse{
				"error":     err.Error(),
				"conflicts": conflicts,
			}, nil)
			return
		}
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{
		"schedule":  sm,
		"conflicts": conflicts,
	}, nil)
}

func (h *MatchHandler) ConfirmSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "scheduleID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.schedule.Confirm(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	schedules, err := h.schedule.ListByTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"schedule": schedules}, nil)
}

func (h *MatchHandler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var venue models.Venue
	if err := readJSON(w, r, &venue); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.schedule.CreateVenue(r.Context(), &venue); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, venue, nil)
}

func (h *MatchHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.schedule.ListVenues(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"venues": venues}, nil)
}
