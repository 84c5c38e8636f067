package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robonova/competition-core/models"
)

func TestEvaluateOutlierConflicts(t *testing.T) {
	r := &Resolver{}
	agg := &models.AggregatedScore{
		SessionID: 4,
		Criteria: []models.CriterionAggregate{
			{
				CriterionID:    1,
				RequiresReview: true,
				OutlierJudges:  []int{3},
				RawScores: []models.JudgeScore{
					{JudgeID: 1, Value: 8},
					{JudgeID: 2, Value: 8},
					{JudgeID: 3, Value: 2},
				},
			},
		},
	}
	conflicts := r.Evaluate(rubricOneCriterion(10), agg)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	require.Equal(t, 4, c.SessionID)
	require.Equal(t, 1, c.CriterionID)
	require.Equal(t, models.ConflictOutlier, c.Kind)
	require.Equal(t, models.ConflictOpen, c.Status)
	require.NotNil(t, c.JudgeID)
	require.Equal(t, 3, *c.JudgeID)
	require.InDelta(t, 4.0, c.Deviation, 1e-9)
}

func TestEvaluateVarianceAndConsensusKinds(t *testing.T) {
	r := &Resolver{}
	agg := &models.AggregatedScore{
		SessionID: 4,
		Criteria: []models.CriterionAggregate{
			{CriterionID: 1, RequiresReview: true, Variance: 3.2, Method: models.AggregateAverage},
			{CriterionID: 2, RequiresReview: true, Variance: 1.1, Method: models.AggregateConsensus},
			{CriterionID: 3, RequiresReview: false, Variance: 9},
		},
	}
	conflicts := r.Evaluate(rubricOneCriterion(10), agg)
	require.Len(t, conflicts, 2)
	require.Equal(t, models.ConflictVariance, conflicts[0].Kind)
	require.InDelta(t, 3.2, conflicts[0].Deviation, 1e-9)
	require.Equal(t, models.ConflictConsensus, conflicts[1].Kind)
	require.Nil(t, conflicts[0].JudgeID)
}

func TestCanAutoResolve(t *testing.T) {
	criterion := models.Criterion{ID: 1, MaxValue: 10}

	tests := []struct {
		name     string
		resolver Resolver
		conflict models.ScoreConflict
		want     bool
	}{
		{
			name:     "minor deviation with auto resolve on",
			resolver: Resolver{AutoResolve: true, MinorThresholdPercent: 5},
			conflict: models.ScoreConflict{Deviation: 0.4},
			want:     true,
		},
		{
			name:     "major deviation",
			resolver: Resolver{AutoResolve: true, MinorThresholdPercent: 5},
			conflict: models.ScoreConflict{Deviation: 0.6},
			want:     false,
		},
		{
			name:     "auto resolve disabled",
			resolver: Resolver{AutoResolve: false, MinorThresholdPercent: 5},
			conflict: models.ScoreConflict{Deviation: 0.1},
			want:     false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.resolver.CanAutoResolve(tc.conflict, criterion))
		})
	}
}

func TestAuthorize(t *testing.T) {
	require.ErrorIs(t, Authorize(nil), ErrResolutionForbidden)
	require.ErrorIs(t, Authorize(&models.Judge{ID: 1}), ErrResolutionForbidden)
	require.NoError(t, Authorize(&models.Judge{ID: 1, HeadJudge: true}))
}
