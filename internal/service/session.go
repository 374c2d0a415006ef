package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/query"
	"github.com/user/cagetracker/internal/tokenstore"
)

// SessionGuard reacts to a server-rejected session: it drops the stored token and every
// cached read, then tells the listener (typically the UI shell, to route to sign-in).
type SessionGuard struct {
	tokens   tokenstore.Store
	cache    *query.Cache
	log      zerolog.Logger
	listener func(ctx context.Context)
}

// NewSessionGuard creates a guard; listener may be nil
func NewSessionGuard(tokens tokenstore.Store, cache *query.Cache, log zerolog.Logger, listener func(ctx context.Context)) *SessionGuard {
	return &SessionGuard{
		tokens:   tokens,
		cache:    cache,
		log:      log.With().Str("component", "session").Logger(),
		listener: listener,
	}
}

// SessionExpired implements apiclient.SessionObserver
func (g *SessionGuard) SessionExpired(ctx context.Context) {
	if err := g.tokens.Clear(ctx); err != nil {
		g.log.Error().Err(err).Msg("failed to clear token after 401")
	}
	g.cache.Clear()
	g.log.Info().Msg("session expired, signed out")
	if g.listener != nil {
		g.listener(ctx)
	}
}
