package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/query"
	"github.com/user/cagetracker/internal/tokenstore"
)

// AuthService auth token lifecycle
type AuthService struct {
	client *apiclient.Client
	cache  *query.Cache
	tokens tokenstore.Store
	log    zerolog.Logger
	// onReset drops per-user state held outside the cache; may be nil
	onReset func()
}

func NewAuthService(client *apiclient.Client, cache *query.Cache, tokens tokenstore.Store, log zerolog.Logger, onReset func()) *AuthService {
	return &AuthService{
		client:  client,
		cache:   cache,
		tokens:  tokens,
		log:     log.With().Str("component", "auth").Logger(),
		onReset: onReset,
	}
}

// Authenticated reports whether a token is stored
func (s *AuthService) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// Login signs in and persists the token
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	token, err := s.client.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.begin(ctx, token)
}

// Register creates an account and persists the token
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) error {
	token, err := s.client.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.begin(ctx, token)
}

// ForgotPassword starts the reset flow; the returned token authorizes CheckCode and ChangePassword
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	token, err := s.client.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	return s.begin(ctx, token)
}

// CheckCode confirms the emailed reset code
func (s *AuthService) CheckCode(ctx context.Context, code string) (string, error) {
	return s.client.CheckCode(ctx, code)
}

// ChangePassword sets a new password after a confirmed code
func (s *AuthService) ChangePassword(ctx context.Context, password string) error {
	return s.client.ChangePassword(ctx, password)
}

// Logout forgets the token, every cached read and all per-movie state
func (s *AuthService) Logout(ctx context.Context) error {
	s.reset()
	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// DeleteAccount deletes the signed-in account, then signs out
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.client.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user", userID).Msg("account deleted")
	return s.Logout(ctx)
}

func (s *AuthService) begin(ctx context.Context, token string) error {
	// a previous session's state must not leak into the new one
	s.reset()
	if err := s.tokens.SetToken(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *AuthService) reset() {
	s.cache.Clear()
	if s.onReset != nil {
		s.onReset()
	}
}
