package routes

import (
	"net/http"
	"time"

	"studytrack/studytrack/database"
	"studytrack/studytrack/middleware"
	"studytrack/studytrack/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterOptions carries everything the HTTP surface depends on.
type RouterOptions struct {
	DB             *database.Database
	UserService    services.UserServiceInterface
	TaskService    services.TaskServiceInterface
	AuthService    services.AuthServiceInterface
	Logger         logrus.FieldLogger
	Metrics        *middleware.Metrics
	RateLimiter    middleware.RateLimiter
	AuthRateLimit  int
	AuthRateWindow time.Duration
	AllowedOrigins string
}

func NewRouter(opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"panic":      recovered,
			"request_id": middleware.RequestIDFromContext(c),
		}).Error("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   services.ErrInternal.Error(),
		})
	}))
	router.Use(withLogger(logger), middleware.RequestID(), middleware.RequestLogger(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	router.Use(middleware.CORSMiddleware(opts.AllowedOrigins))

	RegisterHealthRoutes(router, opts.DB)

	api := router.Group("/api")

	var authLimit gin.HandlerFunc
	if opts.RateLimiter != nil {
		authLimit = middleware.RateLimit(opts.RateLimiter, opts.AuthRateLimit, opts.AuthRateWindow, opts.Metrics)
	}
	RegisterAuthRoutes(api, opts.DB, opts.UserService, opts.AuthService, authLimit)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(opts.AuthService))
	RegisterTaskRoutes(protected, opts.DB, opts.TaskService)

	return router
}
