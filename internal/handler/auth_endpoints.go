package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatty-server/internal/models"
)

// register handles POST /auth/register.
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if msg := validateUsername(req.Username); msg != "" {
		badRequest(c, msg)
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		badRequest(c, msg)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Avatar)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()
	c.JSON(http.StatusCreated, user.Public())
}

// login handles POST /auth/login. On success it sets the session cookie.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.VerifyCredentials(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.handleServiceError(c, err)
		return
	}

	token, err := h.authService.IssueSessionToken(user)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.handleServiceError(c, err)
		return
	}

	h.setSessionCookie(c, token, int(h.cfg.SessionTTL.Seconds()))
	loginsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, user.Public())
}

// logout handles POST /auth/logout. Sessions are stateless, so logout means
// expiring the cookie on the client.
func (h *Handler) logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

// profile handles GET /auth/profile.
func (h *Handler) profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    models.ErrCodeTokenInvalid,
			Message: "Authentication required",
		})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Error(err), zap.String("userID", claims.UserID.String()))
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(h.cfg.SameSiteMode())
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", h.cfg.CookieSecure, true)
}
