package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/handler"
	"github.com/user/cagetracker/internal/middleware"
	"github.com/user/cagetracker/internal/validation"
)

// New builds the engine with middleware and every route
func New(h *handler.Handler, log zerolog.Logger) *gin.Engine {
	if !h.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	// request bodies are validated with the same tags the client checks
	binding.Validator = validation.GinValidator{}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log.With().Str("component", "http").Logger()))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registers all routes
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	secret := h.Config.AppSecret
	session := middleware.RequireAuth(secret)
	resetOrSession := middleware.RequireAuth(secret, middleware.ScopeSession, middleware.ScopeReset)

	r.GET("/health", h.Health)

	// ==================== users ====================
	users := r.Group("/users")
	{
		users.POST("/", h.Register)
		users.POST("/login", h.Login)
		users.POST("/forgotpassword", h.ForgotPassword)
		users.POST("/checkcode", resetOrSession, h.CheckCode)
		users.PUT("/changepassword", resetOrSession, h.ChangePassword)

		users.GET("/", session, h.CurrentUser)
		users.PUT("/", session, h.UpdateUser)
		users.DELETE("/", session, h.DeleteUser)

		users.PUT("/rate", session, h.Rate)
		users.DELETE("/rate", session, h.DeleteRating)

		users.GET("/:collection", session, h.Collection)
		users.PUT("/:collection", session, h.AddToCollection)
		users.DELETE("/:collection", session, h.RemoveFromCollection)
	}

	// ==================== movies ====================
	movies := r.Group("/movies")
	movies.Use(middleware.OptionalAuth(secret))
	{
		movies.GET("/", h.ListMovies)
		movies.GET("/quote", h.Quote)
		movies.GET("/avgRating/:id", h.AvgRating)
		movies.GET("/:id", h.Movie)
		movies.POST("/", session, middleware.RequireAdmin(), h.CreateMovie)
	}
}
