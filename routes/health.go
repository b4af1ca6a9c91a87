package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"studytrack/studytrack/database"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes mounts the liveness endpoints and the JSON 404.
// /api/health also pings the store.
func RegisterHealthRoutes(router *gin.Engine, db *database.Database) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Study Task Tracker API",
		})
	})

	router.GET("/api/health", func(c *gin.Context) { Health(c, db) })

	router.NoRoute(func(c *gin.Context) {
		respondFailure(c, http.StatusNotFound, fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})
}

func Health(c *gin.Context, db *database.Database) {
	if db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "Database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
