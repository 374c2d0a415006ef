package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/middleware"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/repository"
	"github.com/user/cagetracker/internal/utils"
)

// Handler HTTP handlers of the tracker API
type Handler struct {
	Repos  *repository.Repositories
	Config *config.Config
	Codes  *utils.ResetCodes
	Log    zerolog.Logger
	// Now clock for the quote of the day
	Now func() time.Time
}

// NewHandler creates the handlers
func NewHandler(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		Repos:  repos,
		Config: cfg,
		Codes:  utils.NewResetCodes(cfg.ResetCodeTTL),
		Log:    log.With().Str("component", "handler").Logger(),
		Now:    time.Now,
	}
}

// Health liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "movies": h.Repos.Movie.Count()})
}

// bind decodes and validates the JSON body, answering 400 on failure
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequest(c, err.Error())
		return false
	}
	return true
}

// fail maps repository errors to responses
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, repository.ErrUnknownCollection):
		utils.NotFound(c, "unknown collection")
	case errors.Is(err, repository.ErrEmailTaken):
		utils.Conflict(c, err.Error())
	case errors.Is(err, repository.ErrInvalidCredentials), errors.Is(err, model.ErrInvalidRating):
		utils.BadRequest(c, err.Error())
	default:
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.InternalServerError(c, "")
	}
}

// currentUser loads the caller; a token for a deleted account is rejected as 401
func (h *Handler) currentUser(c *gin.Context) (*model.User, bool) {
	user, err := h.Repos.User.FindByID(middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if user == nil {
		utils.Unauthorized(c, "account no longer exists")
		return nil, false
	}
	return user, true
}

func (h *Handler) generateToken(user *model.User, scope string, expiry time.Duration) (string, error) {
	return middleware.GenerateToken(user.ID, user.Email, user.IsAdmin, scope, h.Config.AppSecret, expiry)
}

// issueSession answers with a session token for user
func (h *Handler) issueSession(c *gin.Context, status int, user *model.User) {
	token, err := h.generateToken(user, middleware.ScopeSession, h.Config.JWTExpiry)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, token)
}
