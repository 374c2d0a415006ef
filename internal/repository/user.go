package repository

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/cagetracker/internal/model"
)

type userRecord struct {
	user         model.User
	passwordHash []byte
}

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Create registers a user; emails are unique ignoring case
func (r *UserRepository) Create(name, email, password string, admin bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	key := normalizeEmail(email)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.byEmail[key]; taken {
		return nil, ErrEmailTaken
	}
	rec := &userRecord{
		user: model.User{
			ID:        uuid.NewString(),
			Name:      name,
			Email:     strings.TrimSpace(email),
			IsAdmin:   admin,
			Seen:      []string{},
			Favorites: []string{},
			Watchlist: []string{},
			Ratings:   []model.UserRating{},
		},
		passwordHash: hash,
	}
	r.store.users[rec.user.ID] = rec
	r.store.byEmail[key] = rec.user.ID

	u := cloneUser(&rec.user)
	return &u, nil
}

// FindByEmail returns nil when no user has the email
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	u := cloneUser(&r.store.users[id].user)
	return &u, nil
}

// FindByID returns nil when the user does not exist
func (r *UserRepository) FindByID(id string) (*model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	u := cloneUser(&rec.user)
	return &u, nil
}

// Authenticate checks an email and password pair
func (r *UserRepository) Authenticate(email, password string) (*model.User, error) {
	r.store.mu.RLock()
	id, ok := r.store.byEmail[normalizeEmail(email)]
	var rec *userRecord
	if ok {
		rec = r.store.users[id]
	}
	r.store.mu.RUnlock()

	if rec == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return r.FindByID(id)
}

// Update applies the non-empty fields of req
func (r *UserRepository) Update(id string, req model.UpdateUserRequest) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Email != "" {
		key := normalizeEmail(req.Email)
		if owner, taken := r.store.byEmail[key]; taken && owner != id {
			return nil, ErrEmailTaken
		}
		delete(r.store.byEmail, normalizeEmail(rec.user.Email))
		r.store.byEmail[key] = id
		rec.user.Email = strings.TrimSpace(req.Email)
	}
	if req.Name != "" {
		rec.user.Name = req.Name
	}
	u := cloneUser(&rec.user)
	return &u, nil
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.users[id]
	if !ok {
		return ErrNotFound
	}
	rec.passwordHash = hash
	return nil
}

// Delete removes the user and, with it, their ratings
func (r *UserRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.store.byEmail, normalizeEmail(rec.user.Email))
	delete(r.store.users, id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u *model.User) model.User {
	out := *u
	out.Seen = append([]string{}, u.Seen...)
	out.Favorites = append([]string{}, u.Favorites...)
	out.Watchlist = append([]string{}, u.Watchlist...)
	out.Ratings = append([]model.UserRating{}, u.Ratings...)
	return out
}
