package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/robonova/competition-core/models"
)

// Aggregator combines the latest per-judge values into an AggregatedScore.
// Given the same inputs it always produces the same result: criteria are
// walked in rubric order and raw scores are sorted by judge id.
type Aggregator struct {
	Method models.AggregationMethod

	// ConflictThresholdPercent, as a percentage of a criterion's max
	// points, bounds both the acceptable deviation spread and a single
	// judge's distance from the mean.
	ConflictThresholdPercent float64

	// ConsensusTolerancePercent bounds the max-min spread for the
	// consensus method, as a percentage of the criterion max.
	ConsensusTolerancePercent float64
}

// Aggregate recomputes the projection for one session from the latest
// accepted value of each judge, keyed criterion id -> judge id.
func (a *Aggregator) Aggregate(
	rubric *models.Rubric,
	latest map[int]map[int]models.JudgeScore,
	sessionID, teamID int,
	now time.Time,
) *models.AggregatedScore {
	agg := &models.AggregatedScore{
		SessionID:   sessionID,
		TeamID:      teamID,
		Method:      a.Method,
		MaxPossible: rubric.MaxPossible(),
		ComputedAt:  now,
	}

	for _, criterion := range rubric.Criteria {
		byJudge := latest[criterion.ID]
		if len(byJudge) == 0 {
			continue
		}
		raw := make([]models.JudgeScore, 0, len(byJudge))
		for _, js := range byJudge {
			raw = append(raw, js)
		}
		sort.Slice(raw, func(i, j int) bool { return raw[i].JudgeID < raw[j].JudgeID })

		values := make([]float64, len(raw))
		for i, js := range raw {
			values[i] = js.Value
		}

		ca := models.CriterionAggregate{
			CriterionID: criterion.ID,
			Method:      a.Method,
			RawScores:   raw,
		}
		ca.Value, ca.Method = a.combine(values)
		ca.Variance = populationStdDev(values)

		threshold := a.ConflictThresholdPercent / 100 * criterion.MaxValue
		mean := meanOf(values)
		if ca.Variance > threshold {
			ca.RequiresReview = true
		}
		for _, js := range raw {
			if math.Abs(js.Value-mean) > threshold {
				ca.RequiresReview = true
				ca.OutlierJudges = append(ca.OutlierJudges, js.JudgeID)
			}
		}
		if a.Method == models.AggregateConsensus && len(values) > 1 {
			tolerance := a.ConsensusTolerancePercent / 100 * criterion.MaxValue
			lo, hi := minMax(values)
			if hi-lo > tolerance {
				ca.RequiresReview = true
			}
		}

		weight := criterion.Weight
		if weight == 0 {
			weight = 1
		}
		agg.Total += ca.EffectiveValue() * weight
		if ca.RequiresReview {
			agg.RequiresReview = true
		}
		agg.Criteria = append(agg.Criteria, ca)
	}

	if agg.MaxPossible > 0 {
		agg.Normalized = agg.Total / agg.MaxPossible * 100
	}
	return agg
}

// combine applies the configured method, falling back to average for a
// trimmed mean over fewer than four judges.
func (a *Aggregator) combine(values []float64) (float64, models.AggregationMethod) {
	switch a.Method {
	case models.AggregateMedian:
		return median(values), a.Method
	case models.AggregateTrimmedMean:
		if len(values) < 4 {
			return meanOf(values), models.AggregateAverage
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return meanOf(sorted[1 : len(sorted)-1]), a.Method
	case models.AggregateHighest:
		_, hi := minMax(values)
		return hi, a.Method
	case models.AggregateConsensus:
		return meanOf(values), a.Method
	default:
		return meanOf(values), models.AggregateAverage
	}
}

// SubmissionCount returns how many judges have scored each criterion,
// used for the completion gate.
func SubmissionCount(latest map[int]map[int]models.JudgeScore, criterionID int) int {
	return len(latest[criterionID])
}

// CoverageError describes which criterion blocks completion.
func CoverageError(rubric *models.Rubric, latest map[int]map[int]models.JudgeScore) error {
	min := rubric.MinSubmissionsPerCriterion
	if min <= 0 {
		return nil
	}
	for _, c := range rubric.Criteria {
		if got := SubmissionCount(latest, c.ID); got < min {
			return fmt.Errorf("criterion %q has %d of %d required submissions", c.Name, got, min)
		}
	}
	return nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func populationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}
