// Package sampler draws random movies from a filtered catalog without showing the same
// movie twice in a row.
package sampler

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/user/cagetracker/internal/model"
)

// AllGenres genre value that matches every movie
const AllGenres = "All"

// Filters user-selected predicates, all of which must hold
type Filters struct {
	Genre       string // AllGenres or "" for any
	Masterpiece bool   // title contains the masterpiece keyword
	Unseen      bool   // not in the user's seen set
	Watchlist   bool   // in the user's watchlist
}

// Status outcome of a draw
type Status int

const (
	// Loading no catalog has been provided yet
	Loading Status = iota
	// Empty the filters match no movie
	Empty
	// Found a movie was drawn
	Found
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Empty:
		return "empty"
	case Found:
		return "found"
	}
	return "unknown"
}

// Result one draw
type Result struct {
	Status Status
	Movie  model.Movie
}

// Sampler random movie picker. Safe for concurrent use.
type Sampler struct {
	mu      sync.Mutex
	rng     *rand.Rand
	keyword string

	catalog   []model.Movie
	loaded    bool
	seen      map[string]struct{}
	watchlist map[string]struct{}
	filters   Filters

	candidates []model.Movie
	pool       []model.Movie
	lastID     string
}

// New creates a sampler; keyword drives the masterpiece filter, src may be nil
func New(keyword string, src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{
		rng:       rand.New(src),
		keyword:   strings.ToLower(strings.TrimSpace(keyword)),
		seen:      map[string]struct{}{},
		watchlist: map[string]struct{}{},
	}
}

// SetCatalog replaces the catalog and resets the pool
func (s *Sampler) SetCatalog(movies []model.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]model.Movie(nil), movies...)
	s.loaded = true
	s.resetLocked()
}

// SetUser replaces the seen and watchlist sets and resets the pool
func (s *Sampler) SetUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.seen = map[string]struct{}{}
		s.watchlist = map[string]struct{}{}
	} else {
		s.seen = user.IDSet(model.CollectionSeen)
		s.watchlist = user.IDSet(model.CollectionWatchlist)
	}
	s.resetLocked()
}

// SetFilters replaces the filters and resets the pool when they changed
func (s *Sampler) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == s.filters {
		return
	}
	s.filters = f
	s.resetLocked()
}

// Filters current filters
func (s *Sampler) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Candidates number of movies matching the filters
func (s *Sampler) Candidates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// Remaining movies left in the pool before it refills
func (s *Sampler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

// Draw picks a movie uniformly from the pool and removes it
func (s *Sampler) Draw() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return Result{Status: Loading}
	}
	if len(s.candidates) == 0 {
		return Result{Status: Empty}
	}
	if len(s.pool) == 0 {
		s.refillLocked()
	}

	i := s.rng.IntN(len(s.pool))
	movie := s.pool[i]
	s.pool[i] = s.pool[len(s.pool)-1]
	s.pool = s.pool[:len(s.pool)-1]
	s.lastID = movie.ID
	return Result{Status: Found, Movie: movie}
}

// Match reports whether m passes the current filters
func (s *Sampler) Match(m model.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchLocked(m)
}

func (s *Sampler) matchLocked(m model.Movie) bool {
	f := s.filters
	if f.Genre != "" && f.Genre != AllGenres && !m.HasGenre(f.Genre) {
		return false
	}
	if f.Masterpiece && !strings.Contains(strings.ToLower(m.Title), s.keyword) {
		return false
	}
	if f.Unseen {
		if _, ok := s.seen[m.ID]; ok {
			return false
		}
	}
	if f.Watchlist {
		if _, ok := s.watchlist[m.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *Sampler) resetLocked() {
	s.candidates = s.candidates[:0]
	for _, m := range s.catalog {
		if s.matchLocked(m) {
			s.candidates = append(s.candidates, m)
		}
	}
	s.refillLocked()
}

// refillLocked rebuilds the pool from the candidates, leaving out the movie just shown
// unless it is the only candidate
func (s *Sampler) refillLocked() {
	s.pool = s.pool[:0]
	for _, m := range s.candidates {
		if m.ID == s.lastID && len(s.candidates) > 1 {
			continue
		}
		s.pool = append(s.pool, m)
	}
}
