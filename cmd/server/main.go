package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"chatty-server/internal/config"
	"chatty-server/internal/database"
	"chatty-server/internal/handler"
	"chatty-server/internal/logger"
	"chatty-server/internal/middleware"
	"chatty-server/internal/models"
	"chatty-server/internal/service"
	"chatty-server/internal/ws"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	encoding := "json"
	if cfg.Env == "development" {
		encoding = "console"
	}
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: encoding})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	zap.ReplaceGlobals(appLogger)
	appLogger.Info("Starting chatty-server", zap.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DatabaseURL(), appLogger); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}
	defer func() { _ = redisClient.Close() }()

	userRepo := database.NewPgUserRepository(pool, appLogger)
	messageRepo := database.NewPgMessageRepository(pool, appLogger)

	hub := ws.NewHub(cfg.GetAllowedOrigins(), appLogger)
	hub.Start()

	authService := service.NewAuthService(userRepo, cfg, appLogger)
	userService := service.NewUserService(userRepo, messageRepo, cfg, appLogger)
	messageService := service.NewMessageService(messageRepo, userRepo, hub, appLogger)

	if err := seedAdmin(ctx, cfg, userService, appLogger); err != nil {
		appLogger.Fatal("Failed to seed admin account", zap.Error(err))
	}

	authRateLimit := ratelimit.RateLimiter(
		ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: redisClient,
			Rate:        time.Minute,
			Limit:       cfg.AuthRateLimit,
		}),
		&ratelimit.Options{
			ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
				c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
					Code:    models.ErrCodeBadRequest,
					Message: "Too many requests, try again later",
				})
			},
			KeyFunc: func(c *gin.Context) string {
				return c.ClientIP()
			},
		},
	)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.GinZapLogger(appLogger))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-XSRF-TOKEN", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.New(authService, userService, messageService, hub, cfg, appLogger)
	h.RegisterRoutes(router, authRateLimit)

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
		// No blanket write timeout: /ws connections are long-lived.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

// seedAdmin provisions the admin account on first start when credentials are
// configured. An existing user with the configured name is left untouched.
func seedAdmin(ctx context.Context, cfg *config.Config, users service.UserService, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.CreateUser(ctx, cfg.AdminUsername, cfg.AdminPassword, "", models.RoleAdmin)
	if err != nil {
		if errors.Is(err, models.ErrUserAlreadyExists) {
			logger.Info("Admin account already exists", zap.String("username", cfg.AdminUsername))
			return nil
		}
		return err
	}
	logger.Info("Admin account created", zap.String("username", cfg.AdminUsername))
	return nil
}
