package handlers

import (
	"net/http"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/services"
)

type TournamentHandler struct {
	tournaments *services.TournamentService
	seeding     *services.SeedingService
	brackets    *services.BracketService
	standings   *services.StandingsService
}

func NewTournamentHandler(
	tournaments *services.TournamentService,
	seeding *services.SeedingService,
	brackets *services.BracketService,
	standings *services.StandingsService,
) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		seeding:     seeding,
		brackets:    brackets,
		standings:   standings,
	}
}

type createTournamentRequest struct {
	Name                     string                   `json:"name"`
	CategoryID               int                      `json:"category_id"`
	Format                   models.TournamentFormat  `json:"format"`
	AdvancementCount         int                      `json:"advancement_count"`
	AggregationMethod        models.AggregationMethod `json:"aggregation_method"`
	ConflictThresholdPercent float64                  `json:"conflict_threshold_percent"`
	AutoResolveConflicts     bool                     `json:"auto_resolve_conflicts"`
	PublicRawScores          bool                     `json:"public_raw_scores"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament := &models.Tournament{
		Name:                     req.Name,
		CategoryID:               req.CategoryID,
		Format:                   req.Format,
		AdvancementCount:         req.AdvancementCount,
		AggregationMethod:        req.AggregationMethod,
		ConflictThresholdPercent: req.ConflictThresholdPercent,
		AutoResolveConflicts:     req.AutoResolveConflicts,
		PublicRawScores:          req.PublicRawScores,
	}
	if err := h.tournaments.Create(r.Context(), tournament); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, tournament, nil)
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	tournaments, err := h.tournaments.List(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

type updateStatusRequest struct {
	Status models.TournamentStatus `json:"status"`
}

func (h *TournamentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req updateStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tournament, nil)
}

type reseedRequest struct {
	// Overrides pins seed numbers per team id; everything else is derived.
	Overrides map[int]int `json:"overrides"`
}

func (h *TournamentHandler) Reseed(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req reseedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	seeds, err := h.seeding.Reseed(r.Context(), id, req.Overrides)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"seedings": seeds}, nil)
}

func (h *TournamentHandler) ListSeeding(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	seeds, err := h.seeding.List(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"seedings": seeds}, nil)
}

func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matches, err := h.brackets.GenerateBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

func (h *TournamentHandler) NextSwissRound(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matches, err := h.brackets.GenerateNextSwissRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

func (h *TournamentHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var round *int
	if v := queryInt(r, "round", 0); v > 0 {
		round = &v
	}
	matches, err := h.brackets.ListMatches(r.Context(), id, round)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

func (h *TournamentHandler) Standings(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	standings, err := h.standings.List(r.Context(), id, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
}
