package routes

import (
	"net/http"

	"studytrack/studytrack/database"
	"studytrack/studytrack/middleware"
	"studytrack/studytrack/models"
	"studytrack/studytrack/services"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Token string  `json:"token"`
}

func newAuthResponse(user models.User, token string) authResponse {
	return authResponse{ID: user.ID, Email: user.Email, Name: user.Name, Token: token}
}

// RegisterAuthRoutes mounts /auth. Register and login go through the
// optional rate limiter; /auth/me requires a valid token.
func RegisterAuthRoutes(group *gin.RouterGroup, db *database.Database, userService services.UserServiceInterface, authService services.AuthServiceInterface, rateLimit gin.HandlerFunc) {
	auth := group.Group("/auth")

	var guarded []gin.HandlerFunc
	if rateLimit != nil {
		guarded = append(guarded, rateLimit)
	}

	auth.POST("/register", append(guarded, func(c *gin.Context) { Register(c, db, userService) })...)
	auth.POST("/login", append(guarded, func(c *gin.Context) { Login(c, db, userService) })...)
	auth.GET("/me", middleware.AuthMiddleware(authService), func(c *gin.Context) { GetCurrentUser(c, db, userService) })
}

func Register(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondFailure(c, http.StatusBadRequest, invalidBodyMessage)
		return
	}

	user, token, err := userService.Register(c.Request.Context(), db, input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, "User registered successfully", newAuthResponse(user, token))
}

func Login(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondFailure(c, http.StatusBadRequest, invalidBodyMessage)
		return
	}

	user, token, err := userService.Login(c.Request.Context(), db, request.Email, request.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "Login successful", newAuthResponse(user, token))
}

func GetCurrentUser(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := userService.GetUserById(c.Request.Context(), db, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "", user.Profile())
}
