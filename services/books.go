package services

import (
	"sync"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/scoring"
)

// Books holds one score ledger book per tournament, since the aggregation
// policy is a tournament-level setting.
type Books struct {
	mu           sync.Mutex
	byTournament map[int]*scoring.Book
}

func NewBooks() *Books {
	return &Books{byTournament: make(map[int]*scoring.Book)}
}

// For returns the book for a tournament, creating it from the
// tournament's scoring policy on first use.
func (b *Books) For(t *models.Tournament) *scoring.Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	if book, ok := b.byTournament[t.ID]; ok {
		return book
	}
	book := scoring.NewBook(&scoring.Aggregator{
		Method:                    t.AggregationMethod,
		ConflictThresholdPercent:  t.ConflictThresholdPercent,
		ConsensusTolerancePercent: t.ConflictThresholdPercent,
	})
	b.byTournament[t.ID] = book
	return book
}
