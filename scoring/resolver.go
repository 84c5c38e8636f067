package scoring

import (
	"errors"

	"github.com/robonova/competition-core/models"
)

var ErrResolutionForbidden = errors.New("resolver is not allowed to act on conflicts")

// Resolver turns aggregator review flags into routed conflict items and
// decides which of them may be closed without a head judge.
type Resolver struct {
	// AutoResolve mirrors the tournament's auto_resolve_conflicts flag.
	AutoResolve bool

	// MinorThresholdPercent bounds the deviation (as a percentage of the
	// criterion max) below which a conflict counts as minor.
	MinorThresholdPercent float64
}

// Evaluate derives conflict items from a freshly recomputed aggregate.
// One item per flagged criterion, plus one per outlier judge.
func (r *Resolver) Evaluate(rubric *models.Rubric, agg *models.AggregatedScore) []models.ScoreConflict {
	var conflicts []models.ScoreConflict
	for _, ca := range agg.Criteria {
		if !ca.RequiresReview {
			continue
		}
		if len(ca.OutlierJudges) > 0 {
			mean := 0.0
			for _, js := range ca.RawScores {
				mean += js.Value
			}
			mean /= float64(len(ca.RawScores))
			for _, judgeID := range ca.OutlierJudges {
				id := judgeID
				deviation := 0.0
				for _, js := range ca.RawScores {
					if js.JudgeID == judgeID {
						deviation = abs(js.Value - mean)
					}
				}
				conflicts = append(conflicts, models.ScoreConflict{
					SessionID:   agg.SessionID,
					CriterionID: ca.CriterionID,
					Kind:        models.ConflictOutlier,
					JudgeID:     &id,
					Deviation:   deviation,
					Status:      models.ConflictOpen,
				})
			}
			continue
		}
		kind := models.ConflictVariance
		if ca.Method == models.AggregateConsensus {
			kind = models.ConflictConsensus
		}
		conflicts = append(conflicts, models.ScoreConflict{
			SessionID:   agg.SessionID,
			CriterionID: ca.CriterionID,
			Kind:        kind,
			Deviation:   ca.Variance,
			Status:      models.ConflictOpen,
		})
	}
	return conflicts
}

// CanAutoResolve permits silent resolution only for minor deviations and
// only when the tournament allows it. Everything else queues for the
// head judge.
func (r *Resolver) CanAutoResolve(conflict models.ScoreConflict, criterion models.Criterion) bool {
	if !r.AutoResolve {
		return false
	}
	minor := r.MinorThresholdPercent / 100 * criterion.MaxValue
	return conflict.Deviation < minor
}

// Authorize checks the resolver identity against the capability set.
func Authorize(judge *models.Judge) error {
	if judge == nil || !judge.CanResolveConflicts() {
		return ErrResolutionForbidden
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
