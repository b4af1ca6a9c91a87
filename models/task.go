package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// DueDateLayout is the ISO calendar date format tasks store due dates in.
const DueDateLayout = "2006-01-02"

type Task struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"not null;index" json:"userId"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `json:"description"`
	Subject     *string    `json:"subject"`
	DueDate     *string    `json:"dueDate"`
	Priority    Priority   `gorm:"not null;default:medium" json:"priority"`
	Status      TaskStatus `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// OptionalString records whether a JSON key was present at all, and if so
// whether it carried a string or null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// String returns the value, or "" for null.
func (o OptionalString) String() string {
	if o.Value == nil {
		return ""
	}
	return *o.Value
}

// TaskPatch is a partial update; only keys present in the request are applied.
type TaskPatch struct {
	Title       OptionalString `json:"title"`
	Description OptionalString `json:"description"`
	Subject     OptionalString `json:"subject"`
	DueDate     OptionalString `json:"dueDate"`
	Priority    OptionalString `json:"priority"`
	Status      OptionalString `json:"status"`
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Subject.Set &&
		!p.DueDate.Set && !p.Priority.Set && !p.Status.Set
}

type TaskStats struct {
	Total      int64 `gorm:"column:total" json:"total"`
	Pending    int64 `gorm:"column:pending" json:"pending"`
	InProgress int64 `gorm:"column:in_progress" json:"inProgress"`
	Completed  int64 `gorm:"column:completed" json:"completed"`
}
