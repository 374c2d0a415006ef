package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/cagetracker/internal/middleware"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/utils"
)

// CurrentUser GET /users/
func (h *Handler) CurrentUser(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, user)
}

// UpdateUser PUT /users/
func (h *Handler) UpdateUser(c *gin.Context) {
	var req model.UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Empty() {
		utils.BadRequest(c, "nothing to update")
		return
	}
	if _, err := h.Repos.User.Update(middleware.GetUserID(c), req); err != nil {
		h.fail(c, err)
		return
	}
	utils.NoContent(c)
}

// Register POST /users/
func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.Repos.User.Create(req.Name, req.Email, req.Password, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info().Str("user", user.ID).Msg("user registered")
	h.issueSession(c, http.StatusCreated, user)
}

// DeleteUser DELETE /users/; only the account owner or an admin
func (h *Handler) DeleteUser(c *gin.Context) {
	var req model.DeleteUserRequest
	if !h.bind(c, &req) {
		return
	}
	if req.ID != middleware.GetUserID(c) && !middleware.IsAdmin(c) {
		utils.Forbidden(c, "cannot delete another account")
		return
	}
	if err := h.Repos.User.Delete(req.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info().Str("user", req.ID).Msg("user deleted")
	utils.NoContent(c)
}

// Login POST /users/login. Bad credentials are a 400: a 401 would read as an expired session.
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.Repos.User.Authenticate(req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueSession(c, http.StatusOK, user)
}

// ForgotPassword POST /users/forgotpassword issues a reset code and a reset-scoped token
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if user == nil {
		utils.NotFound(c, "no account with that email")
		return
	}

	code, err := h.Codes.Issue(user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	// no mailer in the sandbox, the code goes to the log
	h.Log.Info().Str("user", user.ID).Str("code", code).Msg("password reset code issued")

	token, err := h.generateToken(user, middleware.ScopeReset, h.Config.ResetCodeTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// CheckCode POST /users/checkcode
func (h *Handler) CheckCode(c *gin.Context) {
	var req model.CheckCodeRequest
	if !h.bind(c, &req) {
		return
	}
	if !h.Codes.Verify(middleware.GetUserID(c), req.Code) {
		utils.BadRequest(c, "invalid or expired code")
		return
	}
	utils.Success(c, "code verified")
}

// ChangePassword PUT /users/changepassword; reset tokens need a verified code first
func (h *Handler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	userID := middleware.GetUserID(c)
	if middleware.GetScope(c) == middleware.ScopeReset && !h.Codes.Consume(userID) {
		utils.Forbidden(c, "reset code not verified")
		return
	}
	if err := h.Repos.User.UpdatePassword(userID, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	utils.NoContent(c)
}

// Collection GET /users/:collection
func (h *Handler) Collection(c *gin.Context) {
	col := model.Collection(c.Param("collection"))
	if !col.Valid() {
		utils.NotFound(c, "unknown collection")
		return
	}
	movies, err := h.Repos.User.Collection(middleware.GetUserID(c), col)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, movies)
}

// AddToCollection PUT /users/:collection
func (h *Handler) AddToCollection(c *gin.Context) {
	h.membership(c, true)
}

// RemoveFromCollection DELETE /users/:collection
func (h *Handler) RemoveFromCollection(c *gin.Context) {
	h.membership(c, false)
}

func (h *Handler) membership(c *gin.Context, member bool) {
	col := model.Collection(c.Param("collection"))
	if !col.Toggleable() {
		utils.NotFound(c, "unknown collection")
		return
	}
	var req model.MovieRef
	if !h.bind(c, &req) {
		return
	}

	userID := middleware.GetUserID(c)
	var err error
	if member {
		err = h.Repos.User.AddToCollection(userID, col, req.MovieID)
	} else {
		err = h.Repos.User.RemoveFromCollection(userID, col, req.MovieID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.NoContent(c)
}

// Rate PUT /users/rate
func (h *Handler) Rate(c *gin.Context) {
	var req model.RateRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Repos.User.Rate(middleware.GetUserID(c), req.MovieID, req.Rating); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "rating saved")
}

// DeleteRating DELETE /users/rate
func (h *Handler) DeleteRating(c *gin.Context) {
	var req model.MovieRef
	if !h.bind(c, &req) {
		return
	}
	if err := h.Repos.User.DeleteRating(middleware.GetUserID(c), req.MovieID); err != nil {
		h.fail(c, err)
		return
	}
	utils.NoContent(c)
}
