package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/handler"
	"github.com/user/cagetracker/internal/middleware"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/repository"
	"github.com/user/cagetracker/internal/router"
)

type env struct {
	t      *testing.T
	h      *handler.Handler
	engine *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repository.NewRepositories(repository.NewStore())
	if err := repository.Seed(repos); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := &config.Config{
		Env:          "test",
		AppSecret:    "test-secret",
		JWTExpiry:    time.Hour,
		ResetCodeTTL: time.Minute,
	}
	h := handler.NewHandler(repos, cfg, zerolog.Nop())
	return &env{t: t, h: h, engine: router.New(h, zerolog.Nop())}
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.AuthHeader, token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (e *env) register(name, email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/users/", "", model.RegisterRequest{Name: name, Email: email, Password: "secret1"})
	if w.Code != http.StatusCreated {
		e.t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	return decode[string](e.t, w)
}

func (e *env) firstMovie() model.Movie {
	e.t.Helper()
	movies := decode[[]model.Movie](e.t, e.do(http.MethodGet, "/movies/", "", nil))
	if len(movies) == 0 {
		e.t.Fatal("expected seeded movies")
	}
	return movies[0]
}

func TestRegisterLoginAndCurrentUser(t *testing.T) {
	e := newEnv(t)
	token := e.register("Castor", "castor@example.com")

	if w := e.do(http.MethodPost, "/users/", "", model.RegisterRequest{Name: "Dup", Email: "castor@example.com", Password: "secret1"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}

	w := e.do(http.MethodGet, "/users/", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("current user: %d %s", w.Code, w.Body.String())
	}
	user := decode[model.User](t, w)
	if user.Email != "castor@example.com" || user.Seen == nil || user.Ratings == nil {
		t.Fatalf("unexpected user %+v", user)
	}

	if w := e.do(http.MethodPost, "/users/login", "", model.LoginRequest{Email: "castor@example.com", Password: "nope"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad credentials, got %d", w.Code)
	}
	w = e.do(http.MethodPost, "/users/login", "", model.LoginRequest{Email: "castor@example.com", Password: "secret1"})
	if w.Code != http.StatusOK || decode[string](t, w) == "" {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
}

func TestErrorEnvelope(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/users/", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["success"] != false || body["code"] != float64(401) || body["message"] == "" {
		t.Fatalf("unexpected envelope %v", body)
	}

	w = e.do(http.MethodPost, "/users/login", "", map[string]string{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for schema violation, got %d", w.Code)
	}
	if msg := decode[map[string]any](t, w)["message"].(string); !strings.Contains(msg, "password") {
		t.Fatalf("expected field name in message, got %q", msg)
	}
}

func TestCollectionsAndRatings(t *testing.T) {
	e := newEnv(t)
	token := e.register("Alice", "alice@example.com")
	movie := e.firstMovie()

	if w := e.do(http.MethodPut, "/users/watchlist", token, model.MovieRef{MovieID: movie.ID}); w.Code != http.StatusNoContent {
		t.Fatalf("add watchlist: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(http.MethodPut, "/users/bogus", token, model.MovieRef{MovieID: movie.ID}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown collection, got %d", w.Code)
	}
	list := decode[[]model.Movie](t, e.do(http.MethodGet, "/users/watchlist", token, nil))
	if len(list) != 1 || list[0].ID != movie.ID {
		t.Fatalf("expected watchlisted movie, got %+v", list)
	}
	if w := e.do(http.MethodDelete, "/users/watchlist", token, model.MovieRef{MovieID: movie.ID}); w.Code != http.StatusNoContent {
		t.Fatalf("remove watchlist: %d", w.Code)
	}

	if w := e.do(http.MethodPut, "/users/rate", token, model.RateRequest{MovieID: movie.ID, Rating: 6}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range rating, got %d", w.Code)
	}
	if w := e.do(http.MethodPut, "/users/rate", token, model.RateRequest{MovieID: movie.ID, Rating: 4.5}); w.Code != http.StatusOK {
		t.Fatalf("rate: %d %s", w.Code, w.Body.String())
	}
	avg := decode[string](t, e.do(http.MethodGet, "/movies/avgRating/"+movie.ID, "", nil))
	if avg != "4.5" {
		t.Fatalf("expected average 4.5, got %q", avg)
	}
	rated := decode[[]model.Movie](t, e.do(http.MethodGet, "/users/rate", token, nil))
	if len(rated) != 1 {
		t.Fatalf("expected one rated movie, got %d", len(rated))
	}

	if w := e.do(http.MethodDelete, "/users/rate", token, model.MovieRef{MovieID: movie.ID}); w.Code != http.StatusNoContent {
		t.Fatalf("delete rating: %d", w.Code)
	}
	if avg := decode[string](t, e.do(http.MethodGet, "/movies/avgRating/"+movie.ID, "", nil)); avg != "0" {
		t.Fatalf("expected 0 after delete, got %q", avg)
	}
}

func TestMovieEndpoints(t *testing.T) {
	e := newEnv(t)
	movie := e.firstMovie()

	got := decode[model.Movie](t, e.do(http.MethodGet, "/movies/"+movie.ID, "", nil))
	if got.ID != movie.ID || got.AvgRating != nil {
		t.Fatalf("unexpected movie %+v", got)
	}
	if w := e.do(http.MethodGet, "/movies/does-not-exist", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := e.do(http.MethodGet, "/movies/avgRating/does-not-exist", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for average of unknown movie, got %d", w.Code)
	}

	horror := decode[[]model.Movie](t, e.do(http.MethodGet, "/movies/?genre=Horror", "", nil))
	for _, m := range horror {
		if !m.HasGenre("Horror") {
			t.Fatalf("%s is not horror", m.Title)
		}
	}

	e.h.Now = func() time.Time { return time.Date(2024, 7, 12, 9, 0, 0, 0, time.UTC) }
	first := decode[model.Quote](t, e.do(http.MethodGet, "/movies/quote", "", nil))
	second := decode[model.Quote](t, e.do(http.MethodGet, "/movies/quote", "", nil))
	if first.Quote == "" || first != second {
		t.Fatalf("expected a stable quote, got %+v and %+v", first, second)
	}
}

func TestCreateMovieRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	req := model.CreateMovieRequest{
		Title:       "Vampire's Kiss",
		Director:    "Robert Bierman",
		ReleaseDate: "1989-06-02",
		Genres:      []string{"Comedy", "Horror"},
		Runtime:     "103 min",
		AgeRating:   "R",
	}

	user := e.register("Peter", "peter@example.com")
	if w := e.do(http.MethodPost, "/movies/", user, req); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	if _, err := repository.EnsureAdmin(e.h.Repos, "admin@example.com", "adminpass"); err != nil {
		t.Fatalf("admin: %v", err)
	}
	admin := decode[string](t, e.do(http.MethodPost, "/users/login", "", model.LoginRequest{Email: "admin@example.com", Password: "adminpass"}))
	w := e.do(http.MethodPost, "/movies/", admin, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decode[model.Movie](t, w)
	if created.ID == "" || created.Title != req.Title {
		t.Fatalf("unexpected movie %+v", created)
	}
	found := decode[[]model.Movie](t, e.do(http.MethodGet, "/movies/?title=vampire", "", nil))
	if len(found) != 1 {
		t.Fatalf("expected new movie listed, got %d", len(found))
	}
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)
	e.register("Nick", "nick@example.com")

	if w := e.do(http.MethodPost, "/users/forgotpassword", "", model.ForgotPasswordRequest{Email: "ghost@example.com"}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", w.Code)
	}
	w := e.do(http.MethodPost, "/users/forgotpassword", "", model.ForgotPasswordRequest{Email: "nick@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("forgot password: %d %s", w.Code, w.Body.String())
	}
	reset := decode[string](t, w)

	if w := e.do(http.MethodGet, "/users/", reset, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("reset token must not open a session, got %d", w.Code)
	}
	if w := e.do(http.MethodPut, "/users/changepassword", reset, model.ChangePasswordRequest{Password: "brandnew"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before the code is verified, got %d", w.Code)
	}

	// the mailed code only reaches the log, so reissue one the test can see
	user, _ := e.h.Repos.User.FindByEmail("nick@example.com")
	code, _ := e.h.Codes.Issue(user.ID)

	wrong := "111111"
	if code == wrong {
		wrong = "222222"
	}
	if w := e.do(http.MethodPost, "/users/checkcode", reset, model.CheckCodeRequest{Code: wrong}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/users/checkcode", reset, model.CheckCodeRequest{Code: code}); w.Code != http.StatusOK {
		t.Fatalf("check code: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(http.MethodPut, "/users/changepassword", reset, model.ChangePasswordRequest{Password: "brandnew"}); w.Code != http.StatusNoContent {
		t.Fatalf("change password: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(http.MethodPost, "/users/login", "", model.LoginRequest{Email: "nick@example.com", Password: "brandnew"}); w.Code != http.StatusOK {
		t.Fatalf("expected login with new password, got %d", w.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	token := e.register("Sailor", "sailor@example.com")
	other := e.register("Lula", "lula@example.com")
	me := decode[model.User](t, e.do(http.MethodGet, "/users/", token, nil))

	if w := e.do(http.MethodDelete, "/users/", other, model.DeleteUserRequest{ID: me.ID}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting someone else, got %d", w.Code)
	}
	if w := e.do(http.MethodDelete, "/users/", token, model.DeleteUserRequest{ID: me.ID}); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(http.MethodGet, "/users/", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted account, got %d", w.Code)
	}
}
