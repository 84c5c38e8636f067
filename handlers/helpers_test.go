package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/scoring"
	"github.com/robonova/competition-core/services"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"regional final"}`},
		{name: "empty body", body: "", wantErr: "body must not be empty"},
		{name: "malformed", body: `{"name":`, wantErr: "badly-formed JSON"},
		{name: "unknown field", body: `{"title":"x"}`, wantErr: "unknown key"},
		{name: "wrong type", body: `{"name":3}`, wantErr: `incorrect JSON type for field "name"`},
		{name: "trailing value", body: `{"name":"x"}{"name":"y"}`, wantErr: "single JSON value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				require.Equal(t, "regional final", dst.Name)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"tournament not found", services.ErrTournamentNotFound, http.StatusNotFound},
		{"venue not found", services.ErrVenueNotFound, http.StatusNotFound},
		{"illegal transition", services.ErrInvalidStateTransition, http.StatusConflict},
		{"bracket exists", services.ErrBracketAlreadyExists, http.StatusConflict},
		{"scheduling conflict", services.ErrSchedulingConflict, http.StatusConflict},
		{"already scheduled", services.ErrMatchAlreadyScheduled, http.StatusConflict},
		{"stale sequence", scoring.ErrStaleSequence, http.StatusConflict},
		{"score finalized", services.ErrScoreFinalized, http.StatusConflict},
		{"validation", services.ErrValidationFailed, http.StatusBadRequest},
		{"value out of range", scoring.ErrValueOutOfRange, http.StatusBadRequest},
		{"unknown criterion", scoring.ErrUnknownCriterion, http.StatusBadRequest},
		{"not enough teams", services.ErrNotEnoughTeams, http.StatusBadRequest},
		{"forbidden", services.ErrForbiddenOperation, http.StatusForbidden},
		{"judge off category", services.ErrJudgeNotOnCategory, http.StatusForbidden},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, tc.err)
			require.Equal(t, tc.want, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
