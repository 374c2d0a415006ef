package service

import (
	"context"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/query"
)

// MovieService cached catalog reads
type MovieService struct {
	client *apiclient.Client
	cache  *query.Cache
}

func NewMovieService(client *apiclient.Client, cache *query.Cache) *MovieService {
	return &MovieService{client: client, cache: cache}
}

// List the catalog, optionally filtered server side
func (s *MovieService) List(ctx context.Context, filter model.MovieFilter) ([]model.Movie, error) {
	return query.Fetch(ctx, s.cache, query.MovieList(filter), func(ctx context.Context) ([]model.Movie, error) {
		return s.client.ListMovies(ctx, filter)
	})
}

// Movie one movie
func (s *MovieService) Movie(ctx context.Context, id string) (*model.Movie, error) {
	return query.Fetch(ctx, s.cache, query.MovieDetail(id), func(ctx context.Context) (*model.Movie, error) {
		return s.client.Movie(ctx, id)
	})
}

// AverageRating average user rating of a movie, 0 when unrated
func (s *MovieService) AverageRating(ctx context.Context, id string) (float64, error) {
	return query.Fetch(ctx, s.cache, query.AvgRating(id), func(ctx context.Context) (float64, error) {
		return s.client.AverageRating(ctx, id)
	})
}

// Quote quote of the day
func (s *MovieService) Quote(ctx context.Context) (*model.Quote, error) {
	return query.Fetch(ctx, s.cache, query.QuoteCurrent(), s.client.Quote)
}

// Create adds a movie to the catalog (admin only)
func (s *MovieService) Create(ctx context.Context, req model.CreateMovieRequest) (*model.Movie, error) {
	movie, err := s.client.CreateMovie(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(query.MovieLists())
	query.Set(s.cache, query.MovieDetail(movie.ID), movie)
	return movie, nil
}
