package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatty-server/internal/models"
)

// listMessages handles GET /messages. Supports ?search= and ?priority=.
func (h *Handler) listMessages(c *gin.Context) {
	filter := models.MessageFilter{
		Search:   c.Query("search"),
		Priority: models.MessagePriority(c.Query("priority")),
	}

	messages, err := h.messageService.List(c.Request.Context(), filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// createMessage handles POST /messages.
func (h *Handler) createMessage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    models.ErrCodeTokenInvalid,
			Message: "Authentication required",
		})
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if len(req.Content) > maxContentLength {
		badRequest(c, "Message content is too long")
		return
	}

	msg, err := h.messageService.Create(c.Request.Context(), claims.UserID, req.Content, models.MessagePriority(req.Priority))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	messagesCreatedTotal.Inc()
	c.JSON(http.StatusCreated, msg)
}

// deleteMessage handles DELETE /messages/:id (admin only).
func (h *Handler) deleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid message ID")
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), messageID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
