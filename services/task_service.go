package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studytrack/studytrack/broker"
	"studytrack/studytrack/database"
	"studytrack/studytrack/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskServiceInterface interface {
	CreateTask(ctx context.Context, db *database.Database, ownerID int64, input models.TaskInput) (models.Task, error)
	GetTaskById(ctx context.Context, db *database.Database, ownerID, id int64) (models.Task, error)
	UpdateTask(ctx context.Context, db *database.Database, ownerID, id int64, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, db *database.Database, ownerID, id int64) error
	GetTasks(ctx context.Context, db *database.Database, ownerID int64, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error)
	GetTaskStats(ctx context.Context, db *database.Database, ownerID int64) (models.TaskStats, error)
}

type TaskService struct {
	publisher broker.Publisher
	logger    logrus.FieldLogger
}

func NewTaskService(publisher broker.Publisher, logger logrus.FieldLogger) *TaskService {
	if publisher == nil {
		publisher = broker.NoopPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TaskService{publisher: publisher, logger: logger}
}

// Sort columns are fixed SQL fragments; client input only selects a key.
var sortColumns = map[models.SortField]string{
	models.SortByCreatedAt: "created_at",
	models.SortByDueDate:   "CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date",
	models.SortByPriority:  "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
	models.SortByTitle:     "title",
}

func (s *TaskService) CreateTask(ctx context.Context, db *database.Database, ownerID int64, input models.TaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, validationError("Task title is required")
	}

	priority := models.PriorityMedium
	if input.Priority != "" {
		priority = models.Priority(input.Priority)
		if !priority.Valid() {
			return models.Task{}, invalidPriority(input.Priority)
		}
	}

	status := models.StatusPending
	if input.Status != "" {
		status = models.TaskStatus(input.Status)
		if !status.Valid() {
			return models.Task{}, invalidStatus(input.Status)
		}
	}

	dueDate := optionalText(input.DueDate)
	if err := validateDueDate(dueDate); err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		UserID:      ownerID,
		Title:       title,
		Description: optionalText(input.Description),
		Subject:     optionalText(input.Subject),
		DueDate:     dueDate,
		Priority:    priority,
		Status:      status,
	}

	var created models.Task
	err := db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrUserNotFound
			}
			return err
		}
		// Read back by the generated id inside the same transaction.
		return tx.Where("id = ? AND user_id = ?", task.ID, ownerID).First(&created).Error
	})
	if err != nil {
		return models.Task{}, err
	}

	s.publish(broker.TaskCreated, "create", created)
	return created, nil
}

// GetTaskById returns ErrTaskNotFound both for missing ids and for tasks
// owned by someone else.
func (s *TaskService) GetTaskById(ctx context.Context, db *database.Database, ownerID, id int64) (models.Task, error) {
	var task models.Task
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, db *database.Database, ownerID, id int64, patch models.TaskPatch) (models.Task, error) {
	if patch.IsEmpty() {
		return models.Task{}, validationError("No fields to update")
	}

	updates, err := buildTaskUpdates(patch)
	if err != nil {
		return models.Task{}, err
	}

	var updated models.Task
	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		existing, err := findOwnedTask(tx, db.Dialect(), ownerID, id)
		if err != nil {
			return err
		}

		updates["updated_at"] = nextUpdatedAt(existing.UpdatedAt)

		result := tx.Model(&models.Task{}).
			Where("id = ? AND user_id = ?", id, ownerID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		return tx.Where("id = ? AND user_id = ?", id, ownerID).First(&updated).Error
	})
	if err != nil {
		return models.Task{}, err
	}

	s.publish(broker.TaskUpdated, "update", updated)
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, db *database.Database, ownerID, id int64) error {
	var deleted models.Task
	err := db.Transaction(ctx, func(tx *gorm.DB) error {
		existing, err := findOwnedTask(tx, db.Dialect(), ownerID, id)
		if err != nil {
			return err
		}
		deleted = existing

		result := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(broker.TaskDeleted, "delete", deleted)
	return nil
}

func (s *TaskService) GetTasks(ctx context.Context, db *database.Database, ownerID int64, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	query := db.WithContext(ctx).Where("user_id = ?", ownerID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	if filter.Subject != "" {
		query = query.Where(subjectContains(db.Dialect()), filter.Subject)
	}

	tasks := []models.Task{}
	if err := query.Order(orderClause(sort)).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) GetTaskStats(ctx context.Context, db *database.Database, ownerID int64) (models.TaskStats, error) {
	var stats models.TaskStats
	err := db.WithContext(ctx).
		Model(&models.Task{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed`,
			string(models.StatusPending), string(models.StatusInProgress), string(models.StatusCompleted)).
		Where("user_id = ?", ownerID).
		Scan(&stats).Error
	if err != nil {
		return models.TaskStats{}, err
	}
	return stats, nil
}

// findOwnedTask loads the task for update or delete. On PostgreSQL the row
// is locked until the transaction ends; SQLite already serializes writers.
func findOwnedTask(tx *gorm.DB, dialect string, ownerID, id int64) (models.Task, error) {
	query := tx.Where("id = ? AND user_id = ?", id, ownerID)
	if dialect == database.DriverPostgres {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var task models.Task
	if err := query.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// buildTaskUpdates validates a patch and turns it into column assignments.
// Present-but-empty optional fields clear the column.
func buildTaskUpdates(patch models.TaskPatch) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	if patch.Title.Set {
		title := strings.TrimSpace(patch.Title.String())
		if title == "" {
			return nil, validationError("Task title cannot be empty")
		}
		updates["title"] = title
	}

	if patch.Description.Set {
		updates["description"] = optionalText(patch.Description.String())
	}

	if patch.Subject.Set {
		updates["subject"] = optionalText(patch.Subject.String())
	}

	if patch.DueDate.Set {
		dueDate := optionalText(patch.DueDate.String())
		if err := validateDueDate(dueDate); err != nil {
			return nil, err
		}
		updates["due_date"] = dueDate
	}

	if patch.Priority.Set {
		priority := models.Priority(patch.Priority.String())
		if !priority.Valid() {
			return nil, invalidPriority(patch.Priority.String())
		}
		updates["priority"] = string(priority)
	}

	if patch.Status.Set {
		status := models.TaskStatus(patch.Status.String())
		if !status.Valid() {
			return nil, invalidStatus(patch.Status.String())
		}
		updates["status"] = string(status)
	}

	return updates, nil
}

// nextUpdatedAt never moves updated_at backwards, even when two writes land
// within the same clock tick.
func nextUpdatedAt(previous time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(previous) {
		return previous.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func orderClause(sort models.TaskSort) string {
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = sortColumns[models.SortByCreatedAt]
	}

	direction := "DESC"
	if sort.Direction == models.SortAsc {
		direction = "ASC"
	}

	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}

// subjectContains is a case-sensitive substring test. LIKE is avoided since
// SQLite matches it case-insensitively and it treats % and _ as wildcards.
func subjectContains(dialect string) string {
	if dialect == database.DriverPostgres {
		return "strpos(subject, ?) > 0"
	}
	return "instr(subject, ?) > 0"
}

func validateDueDate(dueDate *string) error {
	if dueDate == nil {
		return nil
	}
	if _, err := time.Parse(models.DueDateLayout, *dueDate); err != nil {
		return validationError("Invalid due date %q: expected YYYY-MM-DD", *dueDate)
	}
	return nil
}

func invalidPriority(value string) error {
	return validationError("Invalid priority %q: must be one of low, medium, high", value)
}

func invalidStatus(value string) error {
	return validationError("Invalid status %q: must be one of pending, in-progress, completed", value)
}

func optionalText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (s *TaskService) publish(eventType broker.EventType, operation string, task models.Task) {
	event, err := models.NewEvent(string(eventType), "task", operation, task.UserID, task)
	if err != nil {
		s.logger.Warnf("Failed to build %s event for task %d: %v", eventType, task.ID, err)
		return
	}
	if err := broker.PublishEvent(s.publisher, eventType, event); err != nil {
		s.logger.Warnf("Failed to publish %s event for task %d: %v", eventType, task.ID, err)
	}
}
