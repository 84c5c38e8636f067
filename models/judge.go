package models

// Judge is the capability view over a judge roster entry. The roster
// itself lives in the external registration service; the core only asks
// what a judge may do.
type Judge struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	CategoryIDs []int  `json:"category_ids"`
	HeadJudge   bool   `json:"head_judge"`
}

// CanScore reports whether the judge is assigned to the category.
func (j *Judge) CanScore(categoryID int) bool {
	for _, id := range j.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// CanResolveConflicts reports whether the judge may act on review items.
func (j *Judge) CanResolveConflicts() bool {
	return j.HeadJudge
}
