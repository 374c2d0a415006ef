// Package interaction holds the per-movie state of the signed-in user (seen, favorite,
// watchlist, rating) and applies toggles with their cross-effects through a Mutator.
//
// State is optimistic: GetState reflects a transition as soon as Apply starts, and the
// part of the transition whose mutation fails is reverted. Cross-effects run as
// sequential mutations, not as a transaction: when marking a movie seen succeeds but the
// follow-up watchlist removal fails, the movie stays seen and on the watchlist, matching
// what the server accepted.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/model"
)

var (
	// ErrBusy another transition for the same movie is still in flight
	ErrBusy = errors.New("a change for this movie is already in progress")
	// ErrSessionExpired the server rejected the session; no message is shown for it
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidStar star outside 1..5
	ErrInvalidStar = errors.New("star must be between 1 and 5")
	// ErrNoTransition Apply called without a transition
	ErrNoTransition = errors.New("no transition given")
)

// State the user's relationship to one movie
type State struct {
	Seen      bool
	Favorite  bool
	Watchlist bool
	Rating    model.Rating
}

// Mutator server writes the machine depends on; *service.UserService implements it
type Mutator interface {
	SetMembership(ctx context.Context, movieID string, c model.Collection, member bool) error
	Rate(ctx context.Context, movieID string, rating model.Rating) error
	DeleteRating(ctx context.Context, movieID string) error
}

// Transition a user action on a movie
type Transition interface {
	fmt.Stringer
	transition()
}

type ToggleFavorite struct{}
type ToggleWatchlist struct{}
type ToggleSeen struct{}

// Rate tap on the Star-th star (1..5)
type Rate struct {
	Star int
}

func (ToggleFavorite) String() string  { return "toggleFavorite" }
func (ToggleWatchlist) String() string { return "toggleWatchlist" }
func (ToggleSeen) String() string      { return "toggleSeen" }
func (r Rate) String() string          { return fmt.Sprintf("rate(%d)", r.Star) }

func (ToggleFavorite) transition()  {}
func (ToggleWatchlist) transition() {}
func (ToggleSeen) transition()      {}
func (Rate) transition()            {}

// TransitionError failed transition with a message fit for display
type TransitionError struct {
	Transition string
	MovieID    string
	Message    string
	Err        error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Transition, e.MovieID, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func (e *TransitionError) Is(target error) bool {
	return target == ErrSessionExpired && errors.Is(e.Err, apiclient.ErrUnauthorized)
}

// NextRating rating after tapping star: full -> half -> cleared -> full
func NextRating(current model.Rating, star int) model.Rating {
	full := model.Rating(star)
	switch current {
	case full:
		return full - 0.5
	case full - 0.5:
		return 0
	default:
		return full
	}
}

// Machine per-movie interaction state
type Machine struct {
	mu     sync.Mutex
	mut    Mutator
	states map[string]State
	busy   map[string]bool
	log    zerolog.Logger
}

func New(mut Mutator, log zerolog.Logger) *Machine {
	return &Machine{
		mut:    mut,
		states: make(map[string]State),
		busy:   make(map[string]bool),
		log:    log.With().Str("component", "interaction").Logger(),
	}
}

// GetState current (possibly optimistic) state; zero before hydration
func (m *Machine) GetState(movieID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[movieID]
}

// Busy reports whether a transition for movieID is in flight
func (m *Machine) Busy(movieID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[movieID]
}

// Hydrate loads the state of movieID from the user's cached collections.
// It is ignored while a transition for the movie is in flight.
func (m *Machine) Hydrate(movieID string, user *model.User) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy[movieID] {
		return m.states[movieID]
	}
	var s State
	if user != nil {
		s.Seen = user.Has(model.CollectionSeen, movieID)
		s.Favorite = user.Has(model.CollectionFavorites, movieID)
		s.Watchlist = user.Has(model.CollectionWatchlist, movieID)
		s.Rating, _ = user.RatingFor(movieID)
	}
	m.states[movieID] = s
	return s
}

// Forget drops every tracked movie, e.g. on sign-out
func (m *Machine) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]State)
}

// Apply runs t against movieID and returns the resulting state
func (m *Machine) Apply(ctx context.Context, movieID string, t Transition) (State, error) {
	if t == nil {
		return m.GetState(movieID), &TransitionError{Transition: "none", MovieID: movieID, Message: ErrNoTransition.Error(), Err: ErrNoTransition}
	}
	if r, ok := t.(Rate); ok && (r.Star < 1 || r.Star > 5) {
		return m.GetState(movieID), &TransitionError{Transition: t.String(), MovieID: movieID, Message: ErrInvalidStar.Error(), Err: ErrInvalidStar}
	}

	m.mu.Lock()
	if m.busy[movieID] {
		current := m.states[movieID]
		m.mu.Unlock()
		return current, ErrBusy
	}
	m.busy[movieID] = true
	prev := m.states[movieID]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.busy, movieID)
		m.mu.Unlock()
	}()

	var err error
	switch t := t.(type) {
	case ToggleFavorite:
		err = m.toggleMembership(ctx, movieID, model.CollectionFavorites, !prev.Favorite, func(s *State, v bool) { s.Favorite = v })
	case ToggleWatchlist:
		err = m.toggleMembership(ctx, movieID, model.CollectionWatchlist, !prev.Watchlist, func(s *State, v bool) { s.Watchlist = v })
	case ToggleSeen:
		err = m.setSeen(ctx, movieID, prev, !prev.Seen)
	case Rate:
		err = m.rate(ctx, movieID, prev, t.Star)
	default:
		err = fmt.Errorf("unknown transition %T", t)
	}

	state := m.GetState(movieID)
	if err != nil {
		m.log.Warn().Err(err).Str("movie", movieID).Str("transition", t.String()).Msg("transition failed")
		return state, &TransitionError{
			Transition: t.String(),
			MovieID:    movieID,
			Message:    apiclient.UserMessage(err),
			Err:        err,
		}
	}
	return state, nil
}

func (m *Machine) toggleMembership(ctx context.Context, movieID string, c model.Collection, target bool, set func(*State, bool)) error {
	m.update(movieID, func(s *State) { set(s, target) })
	if err := m.mut.SetMembership(ctx, movieID, c, target); err != nil {
		m.update(movieID, func(s *State) { set(s, !target) })
		return err
	}
	return nil
}

// setSeen marks seen/unseen; marking seen also removes the movie from the watchlist
func (m *Machine) setSeen(ctx context.Context, movieID string, prev State, target bool) error {
	dropWatchlist := target && prev.Watchlist

	m.update(movieID, func(s *State) {
		s.Seen = target
		if dropWatchlist {
			s.Watchlist = false
		}
	})
	if err := m.mut.SetMembership(ctx, movieID, model.CollectionSeen, target); err != nil {
		m.update(movieID, func(s *State) {
			s.Seen = prev.Seen
			s.Watchlist = prev.Watchlist
		})
		return err
	}

	if !dropWatchlist {
		return nil
	}
	if err := m.mut.SetMembership(ctx, movieID, model.CollectionWatchlist, false); err != nil {
		m.update(movieID, func(s *State) { s.Watchlist = true })
		return fmt.Errorf("marked seen but watchlist removal failed: %w", err)
	}
	return nil
}

func (m *Machine) rate(ctx context.Context, movieID string, prev State, star int) error {
	next := NextRating(prev.Rating, star)

	m.update(movieID, func(s *State) { s.Rating = next })
	var err error
	if next.IsZero() {
		err = m.mut.DeleteRating(ctx, movieID)
	} else {
		err = m.mut.Rate(ctx, movieID, next)
	}
	if err != nil {
		m.update(movieID, func(s *State) { s.Rating = prev.Rating })
		return err
	}

	// a rating implies the movie was watched
	if !next.IsZero() {
		if current := m.GetState(movieID); !current.Seen {
			return m.setSeen(ctx, movieID, current, true)
		}
	}
	return nil
}

func (m *Machine) update(movieID string, fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[movieID]
	fn(&s)
	m.states[movieID] = s
}
