package routes

import (
	"net/http"
	"strconv"

	"studytrack/studytrack/database"
	"studytrack/studytrack/models"
	"studytrack/studytrack/services"

	"github.com/gin-gonic/gin"
)

// RegisterTaskRoutes mounts the task endpoints. The group must already be
// behind the auth middleware.
func RegisterTaskRoutes(group *gin.RouterGroup, db *database.Database, taskService services.TaskServiceInterface) {
	group.GET("/tasks", func(c *gin.Context) { GetTasks(c, db, taskService) })
	group.GET("/tasks/stats", func(c *gin.Context) { GetTaskStats(c, db, taskService) })
	group.POST("/tasks", func(c *gin.Context) { CreateTask(c, db, taskService) })
	group.GET("/tasks/:id", func(c *gin.Context) { GetTaskById(c, db, taskService) })
	group.PUT("/tasks/:id", func(c *gin.Context) { UpdateTask(c, db, taskService) })
	group.DELETE("/tasks/:id", func(c *gin.Context) { DeleteTask(c, db, taskService) })
}

func GetTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := models.TaskFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Subject:  c.Query("subject"),
	}
	sort := models.NewTaskSort(c.Query("sortBy"), c.Query("order"))

	tasks, err := taskService.GetTasks(c.Request.Context(), db, userID, filter, sort)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(tasks),
		"data":    tasks,
	})
}

func GetTaskStats(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := taskService.GetTaskStats(c.Request.Context(), db, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "", stats)
}

func CreateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondFailure(c, http.StatusBadRequest, invalidBodyMessage)
		return
	}

	task, err := taskService.CreateTask(c.Request.Context(), db, userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, "Task created successfully", task)
}

func GetTaskById(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := taskService.GetTaskById(c.Request.Context(), db, userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "", task)
}

func UpdateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondFailure(c, http.StatusBadRequest, invalidBodyMessage)
		return
	}

	task, err := taskService.UpdateTask(c.Request.Context(), db, userID, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "Task updated successfully", task)
}

func DeleteTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := taskService.DeleteTask(c.Request.Context(), db, userID, id); err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, "Task deleted successfully", nil)
}

// taskIDParam parses :id. Ids that cannot exist answer the same way as
// tasks that do not exist.
func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, services.ErrTaskNotFound)
		return 0, false
	}
	return id, true
}
