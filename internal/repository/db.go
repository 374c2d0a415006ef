package repository

import (
	"errors"
	"sync"

	"github.com/user/cagetracker/internal/model"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Store in-memory state shared by the repositories
type Store struct {
	mu      sync.RWMutex
	users   map[string]*userRecord
	byEmail map[string]string
	movies  map[string]*model.Movie
	order   []string // movie ids in insertion order
	quotes  []model.Quote
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:   make(map[string]*userRecord),
		byEmail: make(map[string]string),
		movies:  make(map[string]*model.Movie),
	}
}

// Repositories repository set
type Repositories struct {
	Store *Store
	User  *UserRepository
	Movie *MovieRepository
	Quote *QuoteRepository
}

// NewRepositories creates the repositories over one store
func NewRepositories(store *Store) *Repositories {
	return &Repositories{
		Store: store,
		User:  NewUserRepository(store),
		Movie: NewMovieRepository(store),
		Quote: NewQuoteRepository(store),
	}
}
