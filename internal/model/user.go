package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateRating a movie id appears more than once in User.Ratings
var ErrDuplicateRating = errors.New("duplicate rating for movie")

// User user model as returned by GET /users/
type User struct {
	ID        string       `json:"_id" validate:"required"`
	Name      string       `json:"name" validate:"required"`
	Email     string       `json:"email" validate:"required,email"`
	Image     string       `json:"image"`
	IsAdmin   bool         `json:"isAdmin"`
	Seen      []string     `json:"seen" validate:"dive,required"`
	Favorites []string     `json:"favorites" validate:"dive,required"`
	Watchlist []string     `json:"watchlist" validate:"dive,required"`
	Ratings   []UserRating `json:"ratings" validate:"dive"`
}

// UserRating one entry of User.Ratings
type UserRating struct {
	MovieID string `json:"movieId" validate:"required"`
	Rating  Rating `json:"rating" validate:"gte=0.5,lte=5"`
}

// Validate checks invariants the struct tags cannot express
func (u *User) Validate() error {
	seen := make(map[string]struct{}, len(u.Ratings))
	for _, r := range u.Ratings {
		if _, dup := seen[r.MovieID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRating, r.MovieID)
		}
		if !r.Rating.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidRating, float64(r.Rating))
		}
		seen[r.MovieID] = struct{}{}
	}
	return nil
}

// Has reports whether movieID is in the given collection
func (u *User) Has(c Collection, movieID string) bool {
	var ids []string
	switch c {
	case CollectionSeen:
		ids = u.Seen
	case CollectionFavorites:
		ids = u.Favorites
	case CollectionWatchlist:
		ids = u.Watchlist
	case CollectionRated:
		_, ok := u.RatingFor(movieID)
		return ok
	}
	for _, id := range ids {
		if id == movieID {
			return true
		}
	}
	return false
}

// RatingFor returns the user's rating for movieID
func (u *User) RatingFor(movieID string) (Rating, bool) {
	for _, r := range u.Ratings {
		if r.MovieID == movieID {
			return r.Rating, true
		}
	}
	return 0, false
}

// IDSet builds a lookup set from a collection
func (u *User) IDSet(c Collection) map[string]struct{} {
	var ids []string
	switch c {
	case CollectionSeen:
		ids = u.Seen
	case CollectionFavorites:
		ids = u.Favorites
	case CollectionWatchlist:
		ids = u.Watchlist
	case CollectionRated:
		for _, r := range u.Ratings {
			ids = append(ids, r.MovieID)
		}
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Collection a user sub-collection; the value is the wire path segment
type Collection string

const (
	CollectionSeen      Collection = "seen"
	CollectionFavorites Collection = "favorites"
	CollectionWatchlist Collection = "watchlist"
	CollectionRated     Collection = "rate"
)

// Collections all sub-collections in display order
var Collections = []Collection{CollectionWatchlist, CollectionFavorites, CollectionSeen, CollectionRated}

// Valid reports whether c is a known collection
func (c Collection) Valid() bool {
	switch c {
	case CollectionSeen, CollectionFavorites, CollectionWatchlist, CollectionRated:
		return true
	}
	return false
}

// Toggleable reports whether membership in c is set with PUT/DELETE movie-id bodies
func (c Collection) Toggleable() bool {
	return c == CollectionSeen || c == CollectionFavorites || c == CollectionWatchlist
}
