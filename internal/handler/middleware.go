package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatty-server/internal/authz"
	"chatty-server/internal/models"
)

const (
	sessionCookieName = "Authentication"

	contextKeyClaims = "sessionClaims"
)

// SessionMiddleware validates the session cookie and stores the resolved
// claims in the request context. Requests without a valid session are
// rejected with 401.
func (h *Handler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil || token == "" {
			sessionValidationsTotal.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeTokenInvalid,
				Message: "Authentication required",
			})
			return
		}

		claims, err := h.authService.ValidateSessionToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			resp := models.ErrorResponse{Code: models.ErrCodeTokenInvalid, Message: "Invalid session"}
			outcome := "invalid"
			switch {
			case errors.Is(err, models.ErrTokenExpired):
				resp.Code = models.ErrCodeTokenExpired
				resp.Message = "Session expired"
				outcome = "expired"
			case errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenInvalid):
				// covered by defaults
			default:
				h.logger.Error("Session validation failed", zap.Error(err))
				status = http.StatusInternalServerError
				resp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "Internal server error"}
				outcome = "error"
			}
			sessionValidationsTotal.WithLabelValues(outcome).Inc()
			c.AbortWithStatusJSON(status, resp)
			return
		}

		sessionValidationsTotal.WithLabelValues("ok").Inc()
		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose session does not carry the role.
// It must run after SessionMiddleware.
func (h *Handler) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFromContext(c)
		if err := authz.RequireRole(claims, role); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Code:    models.ErrCodeForbidden,
				Message: "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
