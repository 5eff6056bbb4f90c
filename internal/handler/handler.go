// Package handler wires the HTTP surface: routing, CSRF and session
// middleware, and the request/response mapping for every endpoint.
package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatty-server/internal/config"
	"chatty-server/internal/models"
	"chatty-server/internal/service"
	"chatty-server/internal/ws"
)

// Handler holds the dependencies for all HTTP endpoints.
type Handler struct {
	authService    service.AuthService
	userService    service.UserService
	messageService service.MessageService
	hub            *ws.Hub
	cfg            *config.Config
	logger         *zap.Logger
}

// New creates a Handler with its dependencies.
func New(
	authService service.AuthService,
	userService service.UserService,
	messageService service.MessageService,
	hub *ws.Hub,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authService:    authService,
		userService:    userService,
		messageService: messageService,
		hub:            hub,
		cfg:            cfg,
		logger:         logger.Named("Handler"),
	}
}

// RegisterRoutes attaches all routes to the router. authRateLimit guards the
// credential endpoints; nil disables rate limiting (tests).
func (h *Handler) RegisterRoutes(router *gin.Engine, authRateLimit gin.HandlerFunc) {
	if authRateLimit == nil {
		authRateLimit = func(c *gin.Context) { c.Next() }
	}

	// The CSRF check runs before anything else so a forged request never
	// reaches session validation or business logic.
	router.Use(h.CSRFMiddleware())

	auth := router.Group("/auth")
	{
		auth.GET("/csrf-token", h.csrfToken)
		auth.POST("/register", authRateLimit, h.register)
		auth.POST("/login", authRateLimit, h.login)
		auth.POST("/logout", h.logout)
		auth.GET("/profile", h.SessionMiddleware(), h.profile)
	}

	messages := router.Group("/messages")
	{
		messages.GET("", h.listMessages)
		messages.POST("", h.SessionMiddleware(), h.createMessage)
		messages.DELETE("/:id", h.SessionMiddleware(), h.RequireRole(models.RoleAdmin), h.deleteMessage)
	}

	users := router.Group("/users", h.SessionMiddleware())
	{
		users.GET("", h.RequireRole(models.RoleAdmin), h.listUsers)
		users.POST("", h.RequireRole(models.RoleAdmin), h.createUser)
		users.PATCH("/:id", h.updateUser)
		users.PATCH("/:id/ban", h.RequireRole(models.RoleAdmin), h.banUser)
		users.GET("/:id/stats", h.userStats)
	}

	if h.hub != nil {
		router.GET("/ws", gin.WrapH(h.hub.Handler()))
	}
}

// claimsFromContext returns the session claims set by SessionMiddleware.
func claimsFromContext(c *gin.Context) *models.SessionClaims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
