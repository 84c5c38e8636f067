package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestEntrants(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tournaments/7/entrants", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entrants":[
			{"team_id":1,"prior_placement":2,"beaten_team_ids":[3]},
			{"team_id":3,"qualification_score":88.5}
		]}`))
	})

	inputs, err := c.Entrants(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	require.Equal(t, 1, inputs[0].TeamID)
	require.Equal(t, 2, *inputs[0].PriorPlacement)
	require.Equal(t, []int{3}, inputs[0].BeatenTeamIDs)
	require.Nil(t, inputs[0].QualificationScore)

	require.Equal(t, 3, inputs[1].TeamID)
	require.InDelta(t, 88.5, *inputs[1].QualificationScore, 1e-9)
}

func TestTeamExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/teams/1" {
			w.Write([]byte(`{"id":1}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	exists, err := c.TeamExists(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = c.TeamExists(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestJudgeNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Judge(context.Background(), 42)
	require.ErrorIs(t, err, ErrRosterEntryNotFound)
}

func TestAvailableAtSendsSlot(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/judges/5/availability", r.URL.Path)
		require.Equal(t, start.Format(time.RFC3339), r.URL.Query().Get("start"))
		require.Equal(t, start.Add(30*time.Minute).Format(time.RFC3339), r.URL.Query().Get("end"))
		w.Write([]byte(`{"available":true}`))
	})

	available, err := c.AvailableAt(context.Background(), 5, models.TimeSlot{
		Start: start,
		End:   start.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	require.True(t, available)
}

func TestRubric(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/categories/9/rubric", r.URL.Path)
		w.Write([]byte(`{
			"category_id":9,
			"min_submissions_per_criterion":2,
			"criteria":[{"id":1,"name":"mission","min_value":0,"max_value":100,"weight":1}]
		}`))
	})

	rubric, err := c.Rubric(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, 9, rubric.CategoryID)
	require.Equal(t, 2, rubric.MinSubmissionsPerCriterion)
	require.Len(t, rubric.Criteria, 1)
	require.InDelta(t, 100.0, rubric.Criteria[0].MaxValue, 1e-9)
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Rubric(context.Background(), 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRosterEntryNotFound)
}
