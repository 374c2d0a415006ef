package repository

import (
	"time"

	"github.com/user/cagetracker/internal/model"
)

type QuoteRepository struct {
	store *Store
}

func NewQuoteRepository(store *Store) *QuoteRepository {
	return &QuoteRepository{store: store}
}

// ForDay picks the quote of the day; the same calendar day always yields the same quote
func (r *QuoteRepository) ForDay(day time.Time) (*model.Quote, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if len(r.store.quotes) == 0 {
		return nil, ErrNotFound
	}
	y, m, d := day.Date()
	n := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	q := r.store.quotes[int(n%int64(len(r.store.quotes)))]
	return &q, nil
}

// Add appends a quote
func (r *QuoteRepository) Add(q model.Quote) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.quotes = append(r.store.quotes, q)
}
