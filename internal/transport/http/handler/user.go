package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/app"
	"taskhub/internal/model"
	"taskhub/internal/transport/http/middleware"
	"taskhub/internal/transport/http/response"
)

type UserHandler struct {
	authService   *app.AuthService
	avatarService *app.AvatarService
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required"`
	Age      int    `json:"age" binding:"gte=0"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func NewUserHandler(authService *app.AuthService, avatarService *app.AvatarService) *UserHandler {
	return &UserHandler{
		authService:   authService,
		avatarService: avatarService,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		if isValidationErr(err) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	response.Created(c, gin.H{
		"user":  result.User,
		"token": result.Token,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredential), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "unable to login")
		default:
			response.Error(c, http.StatusInternalServerError, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"user":  result.User,
		"token": result.Token,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	user, token, ok := authContext(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user, token); err != nil {
		response.Error(c, http.StatusInternalServerError, "logout failed")
		return
	}
	response.OK(c, gin.H{})
}

func (h *UserHandler) LogoutAll(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), user); err != nil {
		response.Error(c, http.StatusInternalServerError, "logout failed")
		return
	}
	response.OK(c, gin.H{})
}

func (h *UserHandler) Me(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	updated, err := h.authService.UpdateProfile(c.Request.Context(), user, updates)
	if err != nil {
		if isValidationErr(err) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "update failed")
		}
		return
	}
	response.OK(c, updated)
}

func (h *UserHandler) Delete(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), user); err != nil {
		response.Error(c, http.StatusInternalServerError, "delete failed")
		return
	}
	response.OK(c, user)
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "please upload an image (form field 'avatar')")
		return
	}
	// Size and extension are checked before any image work, like a multer
	// file filter.
	if file.Size > app.MaxAvatarSize {
		response.Error(c, http.StatusBadRequest, "image too large (max 1MB)")
		return
	}
	if !app.AllowedAvatarName(file.Filename) {
		response.Error(c, http.StatusBadRequest, "please upload a jpg, jpeg or png image")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to open uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read image")
		return
	}

	if err := h.avatarService.SetAvatar(user, data); err != nil {
		if errors.Is(err, app.ErrBadImage) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "store avatar failed")
		}
		return
	}
	response.OK(c, gin.H{})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	user, _, ok := authContext(c)
	if !ok {
		return
	}

	if err := h.avatarService.DeleteAvatar(user); err != nil {
		response.Error(c, http.StatusInternalServerError, "delete avatar failed")
		return
	}
	response.OK(c, gin.H{})
}

// GetAvatar is public: anyone with a user id can fetch the stored image.
func (h *UserHandler) GetAvatar(c *gin.Context) {
	userID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID64 == 0 {
		response.Error(c, http.StatusNotFound, "not found")
		return
	}

	avatar, err := h.avatarService.GetAvatar(uint(userID64))
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "not found")
		} else {
			response.Error(c, http.StatusInternalServerError, "fetch avatar failed")
		}
		return
	}
	c.Data(http.StatusOK, "image/jpg", avatar)
}

// authContext pulls the authenticated user and raw token set by the auth
// middleware; a miss means the middleware did not run, which is a 401.
func authContext(c *gin.Context) (*model.User, string, bool) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "please authenticate")
		return nil, "", false
	}
	token, ok := middleware.TokenFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "please authenticate")
		return nil, "", false
	}
	return user, token, true
}

func isValidationErr(err error) bool {
	return errors.Is(err, app.ErrInvalidInput) ||
		errors.Is(err, app.ErrInvalidEmail) ||
		errors.Is(err, app.ErrInvalidPassword) ||
		errors.Is(err, app.ErrInvalidAge) ||
		errors.Is(err, app.ErrEmailExists) ||
		errors.Is(err, app.ErrUnknownField)
}
