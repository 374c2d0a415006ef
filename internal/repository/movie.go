package repository

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/user/cagetracker/internal/model"
)

// movieNamespace derives stable movie ids from title and release date
var movieNamespace = uuid.MustParse("6f1c2b7e-6a0c-4d1e-9a53-0c1a9e1f3b21")

type MovieRepository struct {
	store *Store
}

func NewMovieRepository(store *Store) *MovieRepository {
	return &MovieRepository{store: store}
}

// List returns the catalog in insertion order; genre "All" or empty matches any,
// title matches by case-insensitive substring
func (r *MovieRepository) List(filter model.MovieFilter) []model.Movie {
	genre := strings.TrimSpace(filter.Genre)
	title := strings.ToLower(strings.TrimSpace(filter.Title))

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]model.Movie, 0, len(r.store.order))
	for _, id := range r.store.order {
		m := r.store.movies[id]
		if genre != "" && !strings.EqualFold(genre, "all") && !m.HasGenre(genre) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		out = append(out, cloneMovie(m))
	}
	return out
}

// FindByID returns nil when the movie does not exist; AvgRating is filled when rated
func (r *MovieRepository) FindByID(id string) (*model.Movie, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.movies[id]
	if !ok {
		return nil, nil
	}
	out := cloneMovie(m)
	if avg, n := r.averageLocked(id); n > 0 {
		out.AvgRating = &avg
	}
	return &out, nil
}

// Exists reports whether the movie is in the catalog
func (r *MovieRepository) Exists(id string) bool {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.movies[id]
	return ok
}

// AverageRating mean of every user's rating for the movie, rounded to two decimals;
// 0 with count 0 when nobody rated it
func (r *MovieRepository) AverageRating(id string) (float64, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.store.movies[id]; !ok {
		return 0, 0, ErrNotFound
	}
	avg, n := r.averageLocked(id)
	return avg, n, nil
}

func (r *MovieRepository) averageLocked(id string) (float64, int) {
	var sum float64
	var n int
	for _, rec := range r.store.users {
		if rating, ok := rec.user.RatingFor(id); ok {
			sum += float64(rating)
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return math.Round(sum/float64(n)*100) / 100, n
}

// Create adds a movie to the catalog
func (r *MovieRepository) Create(req model.CreateMovieRequest) (*model.Movie, error) {
	m := &model.Movie{
		ID:          uuid.NewSHA1(movieNamespace, []byte(req.Title+"|"+req.ReleaseDate)).String(),
		Title:       req.Title,
		Director:    req.Director,
		ReleaseDate: req.ReleaseDate,
		Genres:      append([]string{}, req.Genres...),
		Runtime:     req.Runtime,
		AgeRating:   req.AgeRating,
		Description: req.Description,
		Image:       req.Image,
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, dup := r.store.movies[m.ID]; !dup {
		r.store.order = append(r.store.order, m.ID)
	}
	r.store.movies[m.ID] = m

	out := cloneMovie(m)
	return &out, nil
}

// Count catalog size
func (r *MovieRepository) Count() int {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.order)
}

func cloneMovie(m *model.Movie) model.Movie {
	out := *m
	out.Genres = append([]string{}, m.Genres...)
	out.AvgRating = nil
	return out
}
