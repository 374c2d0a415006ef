package model

import (
	"errors"
	"math"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidRating rating is not a half step in [0.5, 5]
var ErrInvalidRating = errors.New("rating must be a half step between 0.5 and 5")

// Movie movie model
type Movie struct {
	ID          string   `json:"_id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Director    string   `json:"director"`
	ReleaseDate string   `json:"releaseDate"`
	Genres      []string `json:"genre" validate:"unique,dive,required"`
	Runtime     string   `json:"runtime"`
	AgeRating   string   `json:"ageRating"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image"`
	AvgRating   *float64 `json:"avgRating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// HasGenre reports whether the movie is tagged with genre (case-insensitive)
func (m *Movie) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// Genres collects the distinct genres of a catalog, sorted
func Genres(movies []Movie) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range movies {
		for _, g := range m.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// Rating half-star rating, 0 means unrated
type Rating float64

const (
	MinRating Rating = 0.5
	MaxRating Rating = 5
)

// Valid reports whether r is a half step in [0.5, 5]
func (r Rating) Valid() bool {
	if r < MinRating || r > MaxRating {
		return false
	}
	doubled := float64(r) * 2
	return doubled == math.Trunc(doubled)
}

// IsZero reports whether the movie is unrated
func (r Rating) IsZero() bool { return r == 0 }

// Stars splits a rating into full stars and a trailing half star
func (r Rating) Stars() (full int, half bool) {
	full = int(math.Floor(float64(r)))
	half = float64(r)-float64(full) >= 0.5
	return full, half
}

// Quote quote of the day
type Quote struct {
	Quote string `json:"quote" validate:"required"`
	Movie string `json:"movie" validate:"required"`
}

// MovieFilter server side movie listing filter
type MovieFilter struct {
	Genre string
	Title string
}

// Values query parameters sent to the server; blank fields are omitted
func (f MovieFilter) Values() url.Values {
	v := url.Values{}
	if g := strings.TrimSpace(f.Genre); g != "" {
		v.Set("genre", g)
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		v.Set("title", t)
	}
	return v
}

// Descriptor stable string form used in cache keys, identical to the query on the wire
func (f MovieFilter) Descriptor() string {
	v := f.Values()
	if len(v) == 0 {
		return "all"
	}
	return v.Encode()
}
