package apiclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/cagetracker/internal/model"
)

// CurrentUser GET /users/
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, OpCurrentUser, Call{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser PUT /users/
func (c *Client) UpdateUser(ctx context.Context, req model.UpdateUserRequest) error {
	if req.Empty() {
		return &Error{Kind: KindValidation, Op: OpUpdateUser, Message: "nothing to update"}
	}
	return c.Do(ctx, OpUpdateUser, Call{Body: req}, nil)
}

// Register POST /users/, returns the new auth token
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	return c.token(ctx, OpRegister, req)
}

// DeleteUser DELETE /users/
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.Do(ctx, OpDeleteUser, Call{Body: model.DeleteUserRequest{ID: userID}}, nil)
}

// Collection GET /users/{watchlist|favorites|seen|rate}
func (c *Client) Collection(ctx context.Context, col model.Collection) ([]model.Movie, error) {
	if !col.Valid() {
		return nil, &Error{Kind: KindValidation, Op: OpCollection, Message: fmt.Sprintf("unknown collection %q", col)}
	}
	var movies []model.Movie
	err := c.Do(ctx, OpCollection, Call{Params: map[string]string{"collection": string(col)}}, &movies)
	return movies, err
}

// Login POST /users/login, returns the auth token
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	return c.token(ctx, OpLogin, req)
}

// ForgotPassword POST /users/forgotpassword, returns a token scoped to the reset flow
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.token(ctx, OpForgotPassword, model.ForgotPasswordRequest{Email: email})
}

// CheckCode POST /users/checkcode
func (c *Client) CheckCode(ctx context.Context, code string) (string, error) {
	var confirmation string
	err := c.Do(ctx, OpCheckCode, Call{Body: model.CheckCodeRequest{Code: code}}, &confirmation)
	return confirmation, err
}

// ChangePassword PUT /users/changepassword
func (c *Client) ChangePassword(ctx context.Context, password string) error {
	return c.Do(ctx, OpChangePassword, Call{Body: model.ChangePasswordRequest{Password: password}}, nil)
}

// AddToCollection PUT /users/{watchlist|favorites|seen}
func (c *Client) AddToCollection(ctx context.Context, col model.Collection, movieID string) error {
	return c.membership(ctx, OpAddToCollection, col, movieID)
}

// RemoveFromCollection DELETE /users/{watchlist|favorites|seen}
func (c *Client) RemoveFromCollection(ctx context.Context, col model.Collection, movieID string) error {
	return c.membership(ctx, OpRemoveFromCollection, col, movieID)
}

func (c *Client) membership(ctx context.Context, op string, col model.Collection, movieID string) error {
	if !col.Toggleable() {
		return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf("collection %q cannot be toggled", col)}
	}
	return c.Do(ctx, op, Call{
		Params: map[string]string{"collection": string(col)},
		Body:   model.MovieRef{MovieID: movieID},
	}, nil)
}

// Rate PUT /users/rate
func (c *Client) Rate(ctx context.Context, movieID string, rating model.Rating) error {
	if !rating.Valid() {
		return &Error{Kind: KindValidation, Op: OpRate, Message: model.ErrInvalidRating.Error(), Err: model.ErrInvalidRating}
	}
	var ack string
	return c.Do(ctx, OpRate, Call{Body: model.RateRequest{MovieID: movieID, Rating: rating}}, &ack)
}

// DeleteRating DELETE /users/rate
func (c *Client) DeleteRating(ctx context.Context, movieID string) error {
	return c.Do(ctx, OpDeleteRating, Call{Body: model.MovieRef{MovieID: movieID}}, nil)
}

// AverageRating GET /movies/avgRating/{id}; 0 when the movie has no ratings
func (c *Client) AverageRating(ctx context.Context, movieID string) (float64, error) {
	var raw string
	if err := c.Do(ctx, OpAvgRating, Call{Params: map[string]string{"id": movieID}}, &raw); err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	avg, err := strconv.ParseFloat(raw, 64)
	if err != nil || avg < 0 || avg > float64(model.MaxRating) {
		if err == nil {
			err = fmt.Errorf("average %v out of range", avg)
		}
		return 0, c.contractViolation(OpAvgRating, 200, []byte(raw), err)
	}
	return avg, nil
}

// ListMovies GET /movies/
func (c *Client) ListMovies(ctx context.Context, filter model.MovieFilter) ([]model.Movie, error) {
	var movies []model.Movie
	err := c.Do(ctx, OpListMovies, Call{Query: filter.Values()}, &movies)
	return movies, err
}

// Movie GET /movies/{id}
func (c *Client) Movie(ctx context.Context, movieID string) (*model.Movie, error) {
	var movie model.Movie
	if err := c.Do(ctx, OpMovie, Call{Params: map[string]string{"id": movieID}}, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Quote GET /movies/quote
func (c *Client) Quote(ctx context.Context) (*model.Quote, error) {
	var quote model.Quote
	if err := c.Do(ctx, OpQuote, Call{}, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateMovie POST /movies/ (admin)
func (c *Client) CreateMovie(ctx context.Context, req model.CreateMovieRequest) (*model.Movie, error) {
	var movie model.Movie
	if err := c.Do(ctx, OpCreateMovie, Call{Body: req}, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

func (c *Client) token(ctx context.Context, op string, body any) (string, error) {
	var token string
	if err := c.Do(ctx, op, Call{Body: body}, &token); err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", c.contractViolation(op, 200, nil, fmt.Errorf("empty token"))
	}
	return token, nil
}
