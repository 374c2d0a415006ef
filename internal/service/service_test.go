package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/handler"
	"github.com/user/cagetracker/internal/interaction"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/query"
	"github.com/user/cagetracker/internal/repository"
	"github.com/user/cagetracker/internal/router"
	"github.com/user/cagetracker/internal/sampler"
	"github.com/user/cagetracker/internal/service"
	"github.com/user/cagetracker/internal/tokenstore"
)

// sandbox runs the API in-process and counts requests per route
type sandbox struct {
	server *httptest.Server
	repos  *repository.Repositories

	mu   sync.Mutex
	hits map[string]int
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repository.NewRepositories(repository.NewStore())
	if err := repository.Seed(repos); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := &config.Config{Env: "test", AppSecret: "sandbox-secret", JWTExpiry: time.Hour, ResetCodeTTL: time.Minute}
	engine := router.New(handler.NewHandler(repos, cfg, zerolog.Nop()), zerolog.Nop())

	sb := &sandbox{repos: repos, hits: map[string]int{}}
	sb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sb.mu.Lock()
		sb.hits[r.Method+" "+r.URL.Path]++
		sb.mu.Unlock()
		engine.ServeHTTP(w, r)
	}))
	t.Cleanup(sb.server.Close)
	return sb
}

func (sb *sandbox) count(route string) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.hits[route]
}

func newServices(t *testing.T, sb *sandbox, tokens tokenstore.Store, onExpired func(context.Context)) *service.Services {
	t.Helper()
	cfg := &config.Config{
		Env:        "test",
		APIBaseURL: sb.server.URL,
		APITimeout: 5 * time.Second,
		CacheSize:  64,
	}
	svc, err := service.New(cfg, tokens, zerolog.Nop(), onExpired)
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	return svc
}

func signedIn(t *testing.T, sb *sandbox) (*service.Services, tokenstore.Store) {
	t.Helper()
	tokens := tokenstore.NewMemoryStore("")
	svc := newServices(t, sb, tokens, nil)
	err := svc.Auth.Register(context.Background(), model.RegisterRequest{Name: "Castor Troy", Email: "castor@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return svc, tokens
}

func firstMovie(t *testing.T, svc *service.Services) model.Movie {
	t.Helper()
	movies, err := svc.Movies.List(context.Background(), model.MovieFilter{})
	if err != nil || len(movies) == 0 {
		t.Fatalf("list movies: %v (%d)", err, len(movies))
	}
	return movies[0]
}

func TestMutationRefetchesUserOnce(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()
	movie := firstMovie(t, svc)

	if _, err := svc.Users.CurrentUser(ctx); err != nil {
		t.Fatalf("current user: %v", err)
	}
	if _, err := svc.Users.CurrentUser(ctx); err != nil {
		t.Fatalf("current user: %v", err)
	}
	if n := sb.count("GET /users/"); n != 1 {
		t.Fatalf("expected one fetch before mutation, got %d", n)
	}

	state, err := svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleFavorite{})
	if err != nil || !state.Favorite {
		t.Fatalf("toggle favorite: %+v %v", state, err)
	}

	var wg sync.WaitGroup
	users := make([]*model.User, 8)
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users[i], _ = svc.Users.CurrentUser(ctx)
		}()
	}
	wg.Wait()

	if n := sb.count("GET /users/"); n != 2 {
		t.Fatalf("expected exactly one refetch after the mutation, got %d fetches", n)
	}
	for i, u := range users {
		if u == nil || !u.Has(model.CollectionFavorites, movie.ID) {
			t.Fatalf("reader %d saw stale user %+v", i, u)
		}
	}
}

func TestRatingMarksSeenAndLeavesWatchlist(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()
	movie := firstMovie(t, svc)

	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleWatchlist{}); err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	state, err := svc.Interaction.Apply(ctx, movie.ID, interaction.Rate{Star: 4})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if state.Rating != 4 || !state.Seen || state.Watchlist {
		t.Fatalf("unexpected state %+v", state)
	}

	user, err := svc.Users.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if got := svc.Interaction.Hydrate(movie.ID, user); got != state {
		t.Fatalf("server state %+v differs from local %+v", got, state)
	}

	avg, err := svc.Movies.AverageRating(ctx, movie.ID)
	if err != nil || avg != 4 {
		t.Fatalf("expected average 4, got %v %v", avg, err)
	}

	// 4 -> 3.5 -> 0
	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.Rate{Star: 4}); err != nil {
		t.Fatalf("rate again: %v", err)
	}
	state, err = svc.Interaction.Apply(ctx, movie.ID, interaction.Rate{Star: 4})
	if err != nil || !state.Rating.IsZero() {
		t.Fatalf("expected rating cleared, got %+v %v", state, err)
	}
	if avg, _ := svc.Movies.AverageRating(ctx, movie.ID); avg != 0 {
		t.Fatalf("expected average refetched as 0, got %v", avg)
	}
	rated, err := svc.Users.Collection(ctx, model.CollectionRated)
	if err != nil || len(rated) != 0 {
		t.Fatalf("expected no rated movies, got %d %v", len(rated), err)
	}
}

func TestUnauthorizedSignsOut(t *testing.T) {
	sb := newSandbox(t)
	var expired atomic.Int32
	tokens := tokenstore.NewMemoryStore("")
	svc := newServices(t, sb, tokens, func(context.Context) { expired.Add(1) })
	ctx := context.Background()

	if err := svc.Auth.Register(ctx, model.RegisterRequest{Name: "Sailor", Email: "sailor@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	movie := firstMovie(t, svc)
	if _, _, ok := query.Peek[[]model.Movie](svc.Cache, query.MovieList(model.MovieFilter{})); !ok {
		t.Fatal("expected cached movie list")
	}

	_ = tokens.SetToken(ctx, "forged")
	_, err := svc.Users.CurrentUser(ctx)
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if msg := apiclient.UserMessage(err); msg != "" {
		t.Fatalf("401 must not carry a user message, got %q", msg)
	}
	if expired.Load() != 1 {
		t.Fatalf("expected one expiry notification, got %d", expired.Load())
	}
	if tok, _ := tokens.Token(ctx); tok != "" {
		t.Fatalf("expected token cleared, got %q", tok)
	}
	if svc.Cache.Len() != 0 {
		t.Fatalf("expected cache cleared, got %d entries", svc.Cache.Len())
	}
	if ok, _ := svc.Auth.Authenticated(ctx); ok {
		t.Fatal("expected signed out")
	}

	_, err = svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleSeen{})
	if !errors.Is(err, interaction.ErrSessionExpired) {
		t.Fatalf("expected session expiry from the machine, got %v", err)
	}
	if state := svc.Interaction.GetState(movie.ID); state.Seen {
		t.Fatalf("expected optimistic seen reverted, got %+v", state)
	}
}

func TestLoginFailureKeepsServerMessage(t *testing.T) {
	sb := newSandbox(t)
	tokens := tokenstore.NewMemoryStore("")
	svc := newServices(t, sb, tokens, nil)

	err := svc.Auth.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, apiclient.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if msg := apiclient.UserMessage(err); msg != repository.ErrInvalidCredentials.Error() {
		t.Fatalf("expected server message, got %q", msg)
	}
	if tok, _ := tokens.Token(context.Background()); tok != "" {
		t.Fatalf("failed login stored a token: %q", tok)
	}
}

func TestLibraryAndSampler(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()

	movies, err := svc.Movies.List(ctx, model.MovieFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, m := range movies[:3] {
		if err := svc.Users.SetMembership(ctx, m.ID, model.CollectionWatchlist, true); err != nil {
			t.Fatalf("watchlist %s: %v", m.ID, err)
		}
	}

	library, err := svc.Users.Library(ctx)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if len(library[model.CollectionWatchlist]) != 3 || len(library[model.CollectionSeen]) != 0 {
		t.Fatalf("unexpected library %+v", library)
	}

	user, err := svc.Users.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	s := sampler.New("masterpiece", nil)
	s.SetCatalog(movies)
	s.SetUser(user)
	s.SetFilters(sampler.Filters{Genre: sampler.AllGenres, Watchlist: true})

	onWatchlist := user.IDSet(model.CollectionWatchlist)
	for i := 0; i < 10; i++ {
		res := s.Draw()
		if res.Status != sampler.Found {
			t.Fatalf("expected a movie, got %v", res.Status)
		}
		if _, ok := onWatchlist[res.Movie.ID]; !ok {
			t.Fatalf("drew %s which is not on the watchlist", res.Movie.Title)
		}
	}
}

func TestMovieCaching(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()
	movie := firstMovie(t, svc)

	for i := 0; i < 3; i++ {
		if _, err := svc.Movies.Movie(ctx, movie.ID); err != nil {
			t.Fatalf("movie: %v", err)
		}
		if _, err := svc.Movies.Quote(ctx); err != nil {
			t.Fatalf("quote: %v", err)
		}
	}
	if n := sb.count("GET /movies/" + movie.ID); n != 1 {
		t.Fatalf("expected one movie fetch, got %d", n)
	}
	if n := sb.count("GET /movies/quote"); n != 1 {
		t.Fatalf("expected one quote fetch, got %d", n)
	}

	if _, err := svc.Movies.Movie(ctx, "missing"); !errors.Is(err, apiclient.ErrServer) {
		t.Fatalf("expected 404 as server error, got %v", err)
	}
}

func TestAdminCreateInvalidatesLists(t *testing.T) {
	sb := newSandbox(t)
	if _, err := repository.EnsureAdmin(sb.repos, "admin@example.com", "adminpass"); err != nil {
		t.Fatalf("admin: %v", err)
	}
	tokens := tokenstore.NewMemoryStore("")
	svc := newServices(t, sb, tokens, nil)
	ctx := context.Background()
	if err := svc.Auth.Login(ctx, "admin@example.com", "adminpass"); err != nil {
		t.Fatalf("login: %v", err)
	}

	filter := model.MovieFilter{Genre: "Horror"}
	before, err := svc.Movies.List(ctx, filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	created, err := svc.Movies.Create(ctx, model.CreateMovieRequest{
		Title:       "Vampire's Kiss",
		Director:    "Robert Bierman",
		ReleaseDate: "1989-06-02",
		Genres:      []string{"Comedy", "Horror"},
		Runtime:     "103 min",
		AgeRating:   "R",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	after, err := svc.Movies.List(ctx, filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected list refetched with the new movie, got %d then %d", len(before), len(after))
	}

	if _, err := svc.Movies.Movie(ctx, created.ID); err != nil {
		t.Fatalf("movie: %v", err)
	}
	if n := sb.count("GET /movies/" + created.ID); n != 0 {
		t.Fatalf("expected created movie served from cache, got %d fetches", n)
	}
}

func TestDeleteAccountSignsOut(t *testing.T) {
	sb := newSandbox(t)
	svc, tokens := signedIn(t, sb)
	ctx := context.Background()

	user, err := svc.Users.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if err := svc.Auth.DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if tok, _ := tokens.Token(ctx); tok != "" {
		t.Fatal("expected token cleared")
	}
	if svc.Cache.Len() != 0 {
		t.Fatal("expected cache cleared")
	}
	if found, _ := sb.repos.User.FindByID(user.ID); found != nil {
		t.Fatal("expected account removed on the server")
	}
}

func TestLogoutForgetsInteractionState(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()
	movie := firstMovie(t, svc)

	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleFavorite{}); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.Rate{Star: 3}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if err := svc.Auth.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := svc.Interaction.GetState(movie.ID); got != (interaction.State{}) {
		t.Fatalf("expected state forgotten on logout, got %+v", got)
	}

	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleWatchlist{}); err == nil {
		t.Fatal("expected signed-out transition to fail")
	}
	err := svc.Auth.Register(ctx, model.RegisterRequest{Name: "Sailor Ripley", Email: "sailor@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register second user: %v", err)
	}
	if got := svc.Interaction.GetState(movie.ID); got != (interaction.State{}) {
		t.Fatalf("second user sees first user's state: %+v", got)
	}
	user, err := svc.Users.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if got := svc.Interaction.Hydrate(movie.ID, user); got != (interaction.State{}) {
		t.Fatalf("expected clean state for the new account, got %+v", got)
	}
}

func TestDeleteAccountForgetsInteractionState(t *testing.T) {
	sb := newSandbox(t)
	svc, _ := signedIn(t, sb)
	ctx := context.Background()
	movie := firstMovie(t, svc)

	if _, err := svc.Interaction.Apply(ctx, movie.ID, interaction.ToggleSeen{}); err != nil {
		t.Fatalf("seen: %v", err)
	}
	user, err := svc.Users.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if err := svc.Auth.DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := svc.Interaction.GetState(movie.ID); got != (interaction.State{}) {
		t.Fatalf("expected state forgotten after delete, got %+v", got)
	}
}
