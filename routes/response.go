package routes

import (
	"errors"
	"net/http"

	"studytrack/studytrack/middleware"
	"studytrack/studytrack/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	invalidBodyMessage = "Invalid request body"
	loggerKey          = "logger"
)

// withLogger makes the router's logger available to handlers.
func withLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, logger)
		c.Next()
	}
}

func loggerFromContext(c *gin.Context) logrus.FieldLogger {
	if value, ok := c.Get(loggerKey); ok {
		if logger, ok := value.(logrus.FieldLogger); ok {
			return logger
		}
	}
	return logrus.StandardLogger()
}

func respondData(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondError maps service errors onto status codes. Unexpected errors are
// logged and answered without details.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		respondFailure(c, http.StatusBadRequest, services.PublicMessage(err))
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthorized):
		respondFailure(c, http.StatusUnauthorized, services.PublicMessage(err))
	case errors.Is(err, services.ErrNotFound):
		respondFailure(c, http.StatusNotFound, services.PublicMessage(err))
	default:
		_ = c.Error(err)
		loggerFromContext(c).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": middleware.RequestIDFromContext(c),
		}).WithError(err).Error("Unhandled error")
		respondFailure(c, http.StatusInternalServerError, services.ErrInternal.Error())
	}
}

// currentUserID reads the id set by the auth middleware. Handlers are only
// mounted behind it, so a miss means a wiring bug.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondFailure(c, http.StatusUnauthorized, services.ErrUnauthorized.Error())
		return 0, false
	}
	return userID, true
}
