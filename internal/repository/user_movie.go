package repository

import (
	"slices"

	"github.com/user/cagetracker/internal/model"
)

// AddToCollection adds the movie to one of the toggleable collections; adding twice is a no-op
func (r *UserRepository) AddToCollection(userID string, c model.Collection, movieID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ids, err := r.collectionLocked(userID, c, movieID)
	if err != nil {
		return err
	}
	if !slices.Contains(*ids, movieID) {
		*ids = append(*ids, movieID)
	}
	return nil
}

// RemoveFromCollection removing an absent movie is a no-op
func (r *UserRepository) RemoveFromCollection(userID string, c model.Collection, movieID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ids, err := r.collectionLocked(userID, c, movieID)
	if err != nil {
		return err
	}
	*ids = slices.DeleteFunc(*ids, func(id string) bool { return id == movieID })
	return nil
}

func (r *UserRepository) collectionLocked(userID string, c model.Collection, movieID string) (*[]string, error) {
	rec, ok := r.store.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := r.store.movies[movieID]; !ok {
		return nil, ErrNotFound
	}
	switch c {
	case model.CollectionSeen:
		return &rec.user.Seen, nil
	case model.CollectionFavorites:
		return &rec.user.Favorites, nil
	case model.CollectionWatchlist:
		return &rec.user.Watchlist, nil
	}
	return nil, ErrUnknownCollection
}

// Collection movies of a collection in the order they were added; "rate" lists rated movies
func (r *UserRepository) Collection(userID string, c model.Collection) ([]model.Movie, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	var ids []string
	switch c {
	case model.CollectionSeen:
		ids = rec.user.Seen
	case model.CollectionFavorites:
		ids = rec.user.Favorites
	case model.CollectionWatchlist:
		ids = rec.user.Watchlist
	case model.CollectionRated:
		for _, ur := range rec.user.Ratings {
			ids = append(ids, ur.MovieID)
		}
	default:
		return nil, ErrUnknownCollection
	}

	out := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.store.movies[id]; ok {
			out = append(out, cloneMovie(m))
		}
	}
	return out, nil
}

// Rate sets or replaces the user's rating; each movie is rated at most once
func (r *UserRepository) Rate(userID, movieID string, rating model.Rating) error {
	if !rating.Valid() {
		return model.ErrInvalidRating
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[userID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := r.store.movies[movieID]; !ok {
		return ErrNotFound
	}
	for i := range rec.user.Ratings {
		if rec.user.Ratings[i].MovieID == movieID {
			rec.user.Ratings[i].Rating = rating
			return nil
		}
	}
	rec.user.Ratings = append(rec.user.Ratings, model.UserRating{MovieID: movieID, Rating: rating})
	return nil
}

// DeleteRating removing an absent rating is a no-op
func (r *UserRepository) DeleteRating(userID, movieID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[userID]
	if !ok {
		return ErrNotFound
	}
	rec.user.Ratings = slices.DeleteFunc(rec.user.Ratings, func(ur model.UserRating) bool {
		return ur.MovieID == movieID
	})
	return nil
}
