package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/application"
	"github.com/oksasatya/go-ddd-blog/pkg/response"
)

// maxProfileBody caps a profile update request. Bodies past it are answered like any oversized avatar.
const maxProfileBody = 8 << 20

const msgAvatarTooLarge = "Avatar size should not exceed 2MB."

type AccountHandler struct {
	Svc    *application.AccountService
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.AccountService, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Username        string `json:"username" binding:"required,username"`
	Email           string `json:"email" binding:"required,email,max=254"`
	FirstName       string `json:"first_name" binding:"max=150"`
	LastName        string `json:"last_name" binding:"max=150"`
	Password        string `json:"password" binding:"required,pwd"`
	PasswordConfirm string `json:"password_confirm" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type updateProfileRequest struct {
	FirstName *string               `json:"first_name" form:"first_name" binding:"omitempty,max=150"`
	LastName  *string               `json:"last_name" form:"last_name" binding:"omitempty,max=150"`
	Bio       *string               `json:"bio" form:"bio"`
	Avatar    *multipart.FileHeader `json:"-" form:"avatar"`
}

type changePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required,pwd"`
	NewPassword        string `json:"new_password" binding:"required,pwd"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required,pwd"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type authResponse struct {
	User    application.Profile `json:"user"`
	Refresh string              `json:"refresh"`
	Access  string              `json:"access"`
}

func newAuthResponse(res *application.AuthResult) authResponse {
	return authResponse{User: res.User, Refresh: res.Tokens.RefreshToken, Access: res.Tokens.AccessToken}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, newAuthResponse(res))
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, newAuthResponse(res))
}

func (h *AccountHandler) GetProfile(c *gin.Context) {
	p, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, p)
}

// UpdateProfile accepts JSON or multipart/form-data; only fields present in the request change.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	if c.Request.ContentLength > maxProfileBody {
		response.Fields(c, http.StatusBadRequest, map[string]string{"avatar": msgAvatarTooLarge})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProfileBody)

	var req updateProfileRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Fields(c, http.StatusBadRequest, map[string]string{"avatar": msgAvatarTooLarge})
			return
		}
		bindError(c, err)
		return
	}

	in := application.UpdateProfileInput{FirstName: req.FirstName, LastName: req.LastName, Bio: req.Bio}
	if req.Avatar != nil {
		f, err := req.Avatar.Open()
		if err != nil {
			writeError(c, h.Logger, err)
			return
		}
		defer func() { _ = f.Close() }()
		in.Avatar = &application.AvatarUpload{Filename: req.Avatar.Filename, Size: req.Avatar.Size, Body: f}
	}

	p, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString("userID"), in)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, p)
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.Svc.ChangePassword(c.Request.Context(), c.GetString("userID"), application.ChangePasswordInput{
		OldPassword:        req.OldPassword,
		NewPassword:        req.NewPassword,
		NewPasswordConfirm: req.NewPasswordConfirm,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "Password updated successfully.")
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	if err := h.Svc.Deactivate(c.Request.Context(), c.GetString("userID")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "Account deactivated successfully.")
}

func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.GetString("userID")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

// Logout answers 400 for any failure: a bad body, a bad token or a blacklist outage.
func (h *AccountHandler) Logout(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Message(c, http.StatusBadRequest, msgInvalidToken)
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), req.Refresh); err != nil {
		if !errors.Is(err, application.ErrInvalidToken) && h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("logout failed")
		}
		response.Message(c, http.StatusBadRequest, msgInvalidToken)
		return
	}
	response.Message(c, http.StatusOK, "Successfully logged out.")
}

func (h *AccountHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	access, _, err := h.Svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"access": access})
}
