package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/model"
	"smartbin/portal/internal/service"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	cookie      config.AuthConfig
}

func NewAuthHandler(authService service.AuthService, cookie config.AuthConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type MeResponse struct {
	User        *model.User        `json:"user"`
	Role        authz.Role         `json:"role"`
	Permissions []authz.Permission `json:"permissions"`
	Home        authz.Home         `json:"home"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	sess, err := h.authService.Login(c.Request.Context(), c.ClientIP(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, "invalid credentials")
		case errors.Is(err, service.ErrTooManyAttempts):
			response.TooManyRequests(c, err.Error())
		case errors.Is(err, service.ErrUserDisabled):
			response.Forbidden(c, "user is disabled")
		default:
			response.InternalError(c, "login failed")
		}
		return
	}

	h.setCookie(c, sess.Token, time.Until(sess.ExpiresAt))
	response.Success(c, sess)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, err := getClaims(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		response.InternalError(c, "logout failed")
		return
	}

	h.setCookie(c, "", -1)
	response.Success(c, nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrUserDisabled):
			response.Unauthorized(c, err.Error())
		default:
			response.InternalError(c, "failed to load user")
		}
		return
	}

	// The stored role wins over the token's in case it changed since login.
	response.Success(c, MeResponse{
		User:        user,
		Role:        user.Role,
		Permissions: user.Role.Permissions(),
		Home:        user.Role.Home(),
	})
}

// setCookie writes the HttpOnly session cookie. A negative ttl deletes it.
func (h *AuthHandler) setCookie(c *gin.Context, token string, ttl time.Duration) {
	maxAge := -1
	if ttl > 0 {
		maxAge = int(ttl / time.Second)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, token, maxAge, "/", h.cookie.CookieDomain, h.cookie.CookieSecure, true)
}
