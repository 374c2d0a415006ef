package model

// Request bodies shared by the API client and the sandbox server.
// The validate tags are the request schemas.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest partial profile update, at least one field
type UpdateUserRequest struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Empty reports whether the update carries no field
func (r UpdateUserRequest) Empty() bool {
	return r.Name == "" && r.Email == ""
}

type DeleteUserRequest struct {
	ID string `json:"id" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CheckCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// MovieRef body of the collection PUT/DELETE endpoints
type MovieRef struct {
	MovieID string `json:"movieId" validate:"required"`
}

type RateRequest struct {
	MovieID string `json:"movieId" validate:"required"`
	Rating  Rating `json:"rating" validate:"gte=0.5,lte=5"`
}

// CreateMovieRequest admin-only catalog insert
type CreateMovieRequest struct {
	Title       string   `json:"title" validate:"required"`
	Director    string   `json:"director" validate:"required"`
	ReleaseDate string   `json:"releaseDate" validate:"required,datetime=2006-01-02"`
	Genres      []string `json:"genre" validate:"required,min=1,unique,dive,required"`
	Runtime     string   `json:"runtime" validate:"required"`
	AgeRating   string   `json:"ageRating" validate:"required"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image" validate:"omitempty,url"`
}
