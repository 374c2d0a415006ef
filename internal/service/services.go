package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/interaction"
	"github.com/user/cagetracker/internal/query"
	"github.com/user/cagetracker/internal/tokenstore"
)

// Services the client side wired together
type Services struct {
	Client      *apiclient.Client
	Cache       *query.Cache
	Session     *SessionGuard
	Auth        *AuthService
	Users       *UserService
	Movies      *MovieService
	Interaction *interaction.Machine
}

// New wires client, cache and services against cfg.APIBaseURL. onExpired may be nil.
func New(cfg *config.Config, tokens tokenstore.Store, log zerolog.Logger, onExpired func(ctx context.Context)) (*Services, error) {
	cache, err := query.New(query.Options{
		Size:      cfg.CacheSize,
		StaleTime: cfg.CacheStaleTime,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	var interactions *interaction.Machine
	guard := NewSessionGuard(tokens, cache, log, func(ctx context.Context) {
		if interactions != nil {
			interactions.Forget()
		}
		if onExpired != nil {
			onExpired(ctx)
		}
	})

	client, err := apiclient.New(apiclient.Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.APITimeout,
		Tokens:      tokens,
		Session:     guard,
		Logger:      log,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	users := NewUserService(client, cache, log)
	interactions = interaction.New(users, log)

	return &Services{
		Client:      client,
		Cache:       cache,
		Session:     guard,
		Auth:        NewAuthService(client, cache, tokens, log, interactions.Forget),
		Users:       users,
		Movies:      NewMovieService(client, cache),
		Interaction: interactions,
	}, nil
}
