package repository

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/validation"
)

//go:embed seed/catalog.json
var catalogJSON []byte

type seedFile struct {
	Movies []model.CreateMovieRequest `json:"movies"`
	Quotes []model.Quote              `json:"quotes"`
}

// Seed loads the embedded filmography and quotes
func Seed(repos *Repositories) error {
	var data seedFile
	if err := json.Unmarshal(catalogJSON, &data); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for i, req := range data.Movies {
		if err := validation.Struct(req); err != nil {
			return fmt.Errorf("seed movie %d: %w", i, err)
		}
		if _, err := repos.Movie.Create(req); err != nil {
			return fmt.Errorf("seed movie %q: %w", req.Title, err)
		}
	}
	for _, q := range data.Quotes {
		repos.Quote.Add(q)
	}
	return nil
}

// EnsureAdmin creates the admin account unless the email is already registered
func EnsureAdmin(repos *Repositories, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, nil
	}
	existing, err := repos.User.FindByEmail(email)
	if err != nil || existing != nil {
		return existing, err
	}
	return repos.User.Create("Admin", email, password, true)
}
