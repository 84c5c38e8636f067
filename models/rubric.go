package models

// Criterion is one scoreable item of a category rubric. Rubrics are defined
// by the external registration service and consumed read-only.
type Criterion struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
	Weight   float64 `json:"weight"`
}

// Rubric is the scoring definition for one category.
type Rubric struct {
	CategoryID int         `json:"category_id"`
	Criteria   []Criterion `json:"criteria"`

	// MinSubmissionsPerCriterion is how many judges must have scored each
	// criterion before a session may be completed without an override.
	MinSubmissionsPerCriterion int `json:"min_submissions_per_criterion"`
}

// CriterionByID looks up a criterion definition.
func (r *Rubric) CriterionByID(id int) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// MaxPossible is the weighted maximum total for the rubric.
func (r *Rubric) MaxPossible() float64 {
	total := 0.0
	for _, c := range r.Criteria {
		w := c.Weight
		if w == 0 {
			w = 1
		}
		total += c.MaxValue * w
	}
	return total
}
