package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatty-server/internal/models"
)

// handleServiceError maps service-layer sentinel errors to HTTP responses
// with stable machine-readable codes. Anything unrecognized becomes a 500
// with the detail kept in logs.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: "Invalid input",
		})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    models.ErrCodeWrongCredentials,
			Message: "Invalid username or password",
		})
	case errors.Is(err, models.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Code:    models.ErrCodeDuplicateUser,
			Message: "Username is already taken",
		})
	case errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    models.ErrCodeUserNotFound,
			Message: "User not found",
		})
	case errors.Is(err, models.ErrMessageNotFound), errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    models.ErrCodeNotFound,
			Message: "Resource not found",
		})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    models.ErrCodeForbidden,
			Message: "Insufficient permissions",
		})
	case errors.Is(err, models.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    models.ErrCodeTokenExpired,
			Message: "Session expired",
		})
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    models.ErrCodeTokenInvalid,
			Message: "Invalid session",
		})
	default:
		h.logger.Error("Unhandled service error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    models.ErrCodeInternal,
			Message: "Internal server error",
		})
	}
}

// badRequest writes a 400 with a human-readable validation message.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    models.ErrCodeValidation,
		Message: message,
	})
}
