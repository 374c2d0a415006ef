package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/query"
)

// UserService cached reads and invalidating writes of the signed-in user's state
type UserService struct {
	client *apiclient.Client
	cache  *query.Cache
	log    zerolog.Logger
}

func NewUserService(client *apiclient.Client, cache *query.Cache, log zerolog.Logger) *UserService {
	return &UserService{
		client: client,
		cache:  cache,
		log:    log.With().Str("component", "users").Logger(),
	}
}

// CurrentUser the signed-in user
func (s *UserService) CurrentUser(ctx context.Context) (*model.User, error) {
	return query.Fetch(ctx, s.cache, query.UserDetail(), s.client.CurrentUser)
}

// Collection the movies of one user collection
func (s *UserService) Collection(ctx context.Context, c model.Collection) ([]model.Movie, error) {
	return query.Fetch(ctx, s.cache, query.UserCollection(c), func(ctx context.Context) ([]model.Movie, error) {
		return s.client.Collection(ctx, c)
	})
}

// Library every collection of the user, fetched in parallel
func (s *UserService) Library(ctx context.Context) (map[model.Collection][]model.Movie, error) {
	results := make([][]model.Movie, len(model.Collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range model.Collections {
		g.Go(func() error {
			movies, err := s.Collection(gctx, c)
			if err != nil {
				return fmt.Errorf("load %s: %w", c, err)
			}
			results[i] = movies
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	library := make(map[model.Collection][]model.Movie, len(results))
	for i, c := range model.Collections {
		library[c] = results[i]
	}
	return library, nil
}

// UpdateProfile changes name and/or email
func (s *UserService) UpdateProfile(ctx context.Context, req model.UpdateUserRequest) error {
	if err := s.client.UpdateUser(ctx, req); err != nil {
		return err
	}
	s.cache.Invalidate(query.UserDetail())
	return nil
}

// SetMembership adds movieID to or removes it from a toggleable collection
func (s *UserService) SetMembership(ctx context.Context, movieID string, c model.Collection, member bool) error {
	var err error
	if member {
		err = s.client.AddToCollection(ctx, c, movieID)
	} else {
		err = s.client.RemoveFromCollection(ctx, c, movieID)
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate(query.UserDetail(), query.UserCollection(c))
	s.log.Debug().Str("movie", movieID).Str("collection", string(c)).Bool("member", member).Msg("membership updated")
	return nil
}

// Rate sets the user's rating for movieID
func (s *UserService) Rate(ctx context.Context, movieID string, rating model.Rating) error {
	if err := s.client.Rate(ctx, movieID, rating); err != nil {
		return err
	}
	s.invalidateRating(movieID)
	return nil
}

// DeleteRating clears the user's rating for movieID
func (s *UserService) DeleteRating(ctx context.Context, movieID string) error {
	if err := s.client.DeleteRating(ctx, movieID); err != nil {
		return err
	}
	s.invalidateRating(movieID)
	return nil
}

func (s *UserService) invalidateRating(movieID string) {
	// the movie detail embeds the average too
	s.cache.Invalidate(query.UserDetail(), query.UserCollection(model.CollectionRated), query.AvgRating(movieID), query.MovieDetail(movieID))
}
