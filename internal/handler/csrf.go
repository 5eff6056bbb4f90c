package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatty-server/internal/models"
)

const (
	csrfCookieName = "XSRF-TOKEN"
	csrfHeaderName = "X-XSRF-TOKEN"

	csrfTokenBytes = 32

	contextKeyCSRFToken = "csrfToken"
)

// newCSRFToken returns a hex-encoded random token.
func newCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CSRFMiddleware implements the double-submit cookie check. Safe methods
// pass through; unsafe methods must echo the cookie value in the
// X-XSRF-TOKEN header. The cookie is issued on any request that lacks one,
// so a client can obtain a token from any endpoint.
//
// Rejection responses are deliberately uniform: whether the token was
// missing or mismatched is recorded in logs and metrics only.
func (h *Handler) CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieToken, err := c.Cookie(csrfCookieName)
		if err != nil || cookieToken == "" {
			fresh, genErr := newCSRFToken()
			if genErr != nil {
				h.logger.Error("Failed to generate CSRF token", zap.Error(genErr))
				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
					Code:    models.ErrCodeInternal,
					Message: "Internal server error",
				})
				return
			}
			h.setCSRFCookie(c, fresh)
			c.Set(contextKeyCSRFToken, fresh)
			cookieToken = ""
		} else {
			c.Set(contextKeyCSRFToken, cookieToken)
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		headerToken := c.GetHeader(csrfHeaderName)
		if cookieToken == "" || headerToken == "" {
			reason := "missing_cookie"
			if cookieToken != "" {
				reason = "missing_header"
			}
			h.rejectCSRF(c, models.ErrCsrfMissing, reason)
			return
		}
		if headerToken != cookieToken {
			h.rejectCSRF(c, models.ErrCsrfMismatch, "mismatch")
			return
		}

		c.Next()
	}
}

func (h *Handler) setCSRFCookie(c *gin.Context, token string) {
	// Script-readable so the SPA can copy it into the request header.
	c.SetSameSite(h.cfg.SameSiteMode())
	c.SetCookie(csrfCookieName, token, int(h.cfg.SessionTTL.Seconds()), "/", "", h.cfg.CookieSecure, false)
}

func (h *Handler) rejectCSRF(c *gin.Context, err error, reason string) {
	h.logger.Warn("CSRF check failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("clientIP", c.ClientIP()),
	)
	csrfRejectionsTotal.WithLabelValues(reason).Inc()
	c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
		Code:    models.ErrCodeCsrfRejected,
		Message: "CSRF token missing or invalid",
	})
}

// csrfToken returns the token the client must echo on unsafe requests. The
// middleware has already ensured the cookie is set.
func (h *Handler) csrfToken(c *gin.Context) {
	token := c.GetString(contextKeyCSRFToken)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}
