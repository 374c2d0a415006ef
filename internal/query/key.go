package query

import (
	"strings"

	"github.com/user/cagetracker/internal/model"
)

// Key hierarchical cache key. Build keys with the functions below only.
type Key struct {
	parts []string
}

func key(parts ...string) Key {
	return Key{parts: parts}
}

func (k Key) child(part string) Key {
	parts := make([]string, len(k.parts)+1)
	copy(parts, k.parts)
	parts[len(k.parts)] = part
	return Key{parts: parts}
}

// String flat form, unique per key
func (k Key) String() string {
	return strings.Join(k.parts, "\x1f")
}

// Parts copy of the key segments
func (k Key) Parts() []string {
	return append([]string(nil), k.parts...)
}

// HasPrefix reports whether prefix is k or one of its ancestors
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	for i, p := range prefix.parts {
		if k.parts[i] != p {
			return false
		}
	}
	return true
}

// Users root of every user-scoped key
func Users() Key { return key("users") }

// UserDetail the current user
func UserDetail() Key { return Users().child("detail") }

// UserCollection one of the user's movie collections
func UserCollection(c model.Collection) Key { return Users().child(string(c)) }

// Movies root of every catalog key
func Movies() Key { return key("movies") }

// MovieLists every filtered listing
func MovieLists() Key { return Movies().child("list") }

// MovieList a listing for one filter
func MovieList(f model.MovieFilter) Key { return MovieLists().child(f.Descriptor()) }

// MovieDetail one movie
func MovieDetail(id string) Key { return Movies().child("detail").child(id) }

// AvgRatings every average rating
func AvgRatings() Key { return Movies().child("avgRating") }

// AvgRating one movie's average rating
func AvgRating(id string) Key { return AvgRatings().child(id) }

// QuoteCurrent the current quote of the day
func QuoteCurrent() Key { return Movies().child("quote").child("current") }
