package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatty-server/internal/authz"
	"chatty-server/internal/models"
)

// listUsers handles GET /users (admin only).
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	public := make([]*models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	c.JSON(http.StatusOK, public)
}

// createUser handles POST /users (admin only). Unlike self-registration it
// accepts an explicit role.
func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
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
	if req.Role != "" && !models.ValidRole(req.Role) {
		badRequest(c, "Unknown role")
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Username, req.Password, req.Avatar, req.Role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.Public())
}

// updateUser handles PATCH /users/:id. Users may update themselves; admins
// may update anyone. Role changes are admin-only regardless of target.
func (h *Handler) updateUser(c *gin.Context) {
	claims := claimsFromContext(c)
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid user ID")
		return
	}

	if err := authz.Authorize(claims, authz.Requirement{Role: models.RoleAdmin, AllowSelf: true}, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Password == nil && req.Avatar == nil && req.Role == nil {
		badRequest(c, "No fields to update")
		return
	}
	if req.Password != nil {
		if msg := validatePassword(*req.Password); msg != "" {
			badRequest(c, msg)
			return
		}
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			badRequest(c, "Unknown role")
			return
		}
		// Self access does not extend to privilege changes.
		if err := authz.RequireRole(claims, models.RoleAdmin); err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), userID, req.Password, req.Avatar, req.Role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// banUser handles PATCH /users/:id/ban (admin only).
func (h *Handler) banUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid user ID")
		return
	}

	var req banUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.SetBanStatus(c.Request.Context(), userID, *req.Banned)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// userStats handles GET /users/:id/stats. Users may view their own stats;
// admins may view anyone's.
func (h *Handler) userStats(c *gin.Context) {
	claims := claimsFromContext(c)
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid user ID")
		return
	}

	if err := authz.Authorize(claims, authz.Requirement{Role: models.RoleAdmin, AllowSelf: true}, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	stats, err := h.userService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
