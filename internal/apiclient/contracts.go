package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/user/cagetracker/internal/model"
)

// Contract declares one remote operation
type Contract struct {
	Method string
	Path   string // may contain :param segments
	Alias  string
	// Anonymous contracts never carry the auth header
	Anonymous bool
	// Request and Response are zero-value prototypes of the schemas; nil when absent
	Request  any
	Response any
}

// Operation aliases
const (
	OpCurrentUser          = "currentUser"
	OpUpdateUser           = "updateUser"
	OpRegister             = "register"
	OpDeleteUser           = "deleteUser"
	OpCollection           = "collection"
	OpLogin                = "login"
	OpForgotPassword       = "forgotPassword"
	OpCheckCode            = "checkCode"
	OpChangePassword       = "changePassword"
	OpAddToCollection      = "addToCollection"
	OpRemoveFromCollection = "removeFromCollection"
	OpRate                 = "rate"
	OpDeleteRating         = "deleteRating"
	OpAvgRating            = "avgRating"
	OpListMovies           = "listMovies"
	OpMovie                = "movie"
	OpQuote                = "quote"
	OpCreateMovie          = "createMovie"
)

// Contracts the full wire contract
var Contracts = []Contract{
	{Method: http.MethodGet, Path: "/users/", Alias: OpCurrentUser, Response: model.User{}},
	{Method: http.MethodPut, Path: "/users/", Alias: OpUpdateUser, Request: model.UpdateUserRequest{}},
	{Method: http.MethodPost, Path: "/users/", Alias: OpRegister, Anonymous: true, Request: model.RegisterRequest{}, Response: ""},
	{Method: http.MethodDelete, Path: "/users/", Alias: OpDeleteUser, Request: model.DeleteUserRequest{}},
	{Method: http.MethodPost, Path: "/users/login", Alias: OpLogin, Anonymous: true, Request: model.LoginRequest{}, Response: ""},
	{Method: http.MethodPost, Path: "/users/forgotpassword", Alias: OpForgotPassword, Anonymous: true, Request: model.ForgotPasswordRequest{}, Response: ""},
	{Method: http.MethodPost, Path: "/users/checkcode", Alias: OpCheckCode, Request: model.CheckCodeRequest{}, Response: ""},
	{Method: http.MethodPut, Path: "/users/changepassword", Alias: OpChangePassword, Request: model.ChangePasswordRequest{}},
	{Method: http.MethodPut, Path: "/users/rate", Alias: OpRate, Request: model.RateRequest{}, Response: ""},
	{Method: http.MethodDelete, Path: "/users/rate", Alias: OpDeleteRating, Request: model.MovieRef{}},
	{Method: http.MethodGet, Path: "/users/:collection", Alias: OpCollection, Response: []model.Movie{}},
	{Method: http.MethodPut, Path: "/users/:collection", Alias: OpAddToCollection, Request: model.MovieRef{}},
	{Method: http.MethodDelete, Path: "/users/:collection", Alias: OpRemoveFromCollection, Request: model.MovieRef{}},
	{Method: http.MethodGet, Path: "/movies/avgRating/:id", Alias: OpAvgRating, Anonymous: true, Response: ""},
	{Method: http.MethodGet, Path: "/movies/quote", Alias: OpQuote, Anonymous: true, Response: model.Quote{}},
	{Method: http.MethodGet, Path: "/movies/", Alias: OpListMovies, Anonymous: true, Response: []model.Movie{}},
	{Method: http.MethodGet, Path: "/movies/:id", Alias: OpMovie, Anonymous: true, Response: model.Movie{}},
	{Method: http.MethodPost, Path: "/movies/", Alias: OpCreateMovie, Request: model.CreateMovieRequest{}, Response: model.Movie{}},
}

// Registry contracts indexed by alias
type Registry struct {
	byAlias map[string]Contract
}

// NewRegistry indexes contracts; aliases must be unique
func NewRegistry(contracts []Contract) (*Registry, error) {
	r := &Registry{byAlias: make(map[string]Contract, len(contracts))}
	for _, c := range contracts {
		if c.Alias == "" || c.Method == "" || !strings.HasPrefix(c.Path, "/") {
			return nil, fmt.Errorf("invalid contract %+v", c)
		}
		if _, dup := r.byAlias[c.Alias]; dup {
			return nil, fmt.Errorf("duplicate contract alias %q", c.Alias)
		}
		r.byAlias[c.Alias] = c
	}
	return r, nil
}

// Lookup finds a contract by alias
func (r *Registry) Lookup(alias string) (Contract, bool) {
	c, ok := r.byAlias[alias]
	return c, ok
}

// expandPath substitutes :param segments, escaping values
func (c Contract) expandPath(params map[string]string) (string, error) {
	segments := strings.Split(c.Path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("missing path parameter %q", name)
		}
		segments[i] = url.PathEscape(value)
	}
	return strings.Join(segments, "/"), nil
}

// accepts reports whether body matches the declared request schema
func (c Contract) accepts(body any) bool {
	if c.Request == nil {
		return body == nil
	}
	if body == nil {
		return false
	}
	t := reflect.TypeOf(body)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == reflect.TypeOf(c.Request)
}
