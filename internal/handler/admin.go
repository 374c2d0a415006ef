package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/cagetracker/internal/model"
)

// ==================== admin ====================

// CreateMovie POST /movies/
func (h *Handler) CreateMovie(c *gin.Context) {
	var req model.CreateMovieRequest
	if !h.bind(c, &req) {
		return
	}
	movie, err := h.Repos.Movie.Create(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info().Str("movie", movie.ID).Str("title", movie.Title).Msg("movie created")
	c.JSON(http.StatusCreated, movie)
}
