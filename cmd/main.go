package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studytrack/studytrack/broker"
	"studytrack/studytrack/config"
	"studytrack/studytrack/database"
	"studytrack/studytrack/middleware"
	"studytrack/studytrack/routes"
	"studytrack/studytrack/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "your-super-secret-key-change-this-in-production"

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	if cfg.JWTSecret == defaultJWTSecret {
		if cfg.IsProduction() {
			logger.Fatal("JWT_SECRET must be set in production")
		}
		logger.Warn("Using the default JWT secret; set JWT_SECRET before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Setup(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	limiter := newRateLimiter(cfg, logger)
	defer limiter.Close()

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpirationHours)
	userService := services.NewUserService(authService, logger)
	taskService := services.NewTaskService(publisher, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.NewRouter(routes.RouterOptions{
		DB:             db,
		UserService:    userService,
		TaskService:    taskService,
		AuthService:    authService,
		Logger:         logger,
		Metrics:        middleware.NewMetrics(),
		RateLimiter:    limiter,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: time.Duration(cfg.AuthRateWindowSeconds) * time.Second,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("API server is running on port %s (%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Packages that log through the standard logger share the same setup.
	logrus.SetFormatter(logger.Formatter)
	logrus.SetLevel(level)
	return logger
}

// newPublisher connects to NATS when configured. Task writes never depend on
// the broker, so a failed connection only disables events.
func newPublisher(cfg config.Config, logger *logrus.Logger) broker.Publisher {
	if cfg.NatsURL == "" {
		logger.Info("NATS_URL not set, task events are disabled")
		return broker.NoopPublisher{}
	}

	publisher, err := broker.NewNatsPublisher(cfg.NatsURL, logger)
	if err != nil {
		logger.Warnf("Failed to connect to NATS, task events are disabled: %v", err)
		return broker.NoopPublisher{}
	}
	return publisher
}

func newRateLimiter(cfg config.Config, logger *logrus.Logger) middleware.RateLimiter {
	if cfg.RedisAddr != "" {
		limiter, err := middleware.NewRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err == nil {
			logger.Infof("Rate limiting through Redis at %s", cfg.RedisAddr)
			return limiter
		}
		logger.Warnf("Redis unavailable, falling back to in-memory rate limiting: %v", err)
	}
	return middleware.NewMemoryRateLimiter()
}
