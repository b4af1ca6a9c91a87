package testutils

import (
	"database/sql/driver"
	"time"

	"studytrack/studytrack/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var taskColumns = []string{
	"id", "user_id", "title", "description", "subject",
	"due_date", "priority", "status", "created_at", "updated_at",
}

// MockTaskRows creates mock SQL rows for task queries
func MockTaskRows(tasks []models.Task) *sqlmock.Rows {
	rows := sqlmock.NewRows(taskColumns)

	for _, task := range tasks {
		if task.CreatedAt.IsZero() {
			task.CreatedAt = time.Now().UTC()
		}
		if task.UpdatedAt.IsZero() {
			task.UpdatedAt = task.CreatedAt
		}
		if task.Priority == "" {
			task.Priority = models.PriorityMedium
		}
		if task.Status == "" {
			task.Status = models.StatusPending
		}

		rows.AddRow(
			task.ID,
			task.UserID,
			task.Title,
			nullable(task.Description),
			nullable(task.Subject),
			nullable(task.DueDate),
			string(task.Priority),
			string(task.Status),
			task.CreatedAt,
			task.UpdatedAt,
		)
	}

	return rows
}

func nullable(value *string) driver.Value {
	if value == nil {
		return nil
	}
	return *value
}
