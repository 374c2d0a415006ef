package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/utils"
)

// ListMovies GET /movies/?genre=&title=
func (h *Handler) ListMovies(c *gin.Context) {
	movies := h.Repos.Movie.List(model.MovieFilter{
		Genre: c.Query("genre"),
		Title: c.Query("title"),
	})
	utils.Success(c, movies)
}

// Movie GET /movies/:id
func (h *Handler) Movie(c *gin.Context) {
	movie, err := h.Repos.Movie.FindByID(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if movie == nil {
		utils.NotFound(c, "movie not found")
		return
	}
	utils.Success(c, movie)
}

// AvgRating GET /movies/avgRating/:id answers a numeric string, "0" when unrated
func (h *Handler) AvgRating(c *gin.Context) {
	avg, _, err := h.Repos.Movie.AverageRating(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, strconv.FormatFloat(avg, 'f', -1, 64))
}

// Quote GET /movies/quote
func (h *Handler) Quote(c *gin.Context) {
	quote, err := h.Repos.Quote.ForDay(h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, quote)
}
