package models

import "strings"

// TaskFilter narrows a task listing. Empty fields do not filter.
type TaskFilter struct {
	Status   string
	Priority string
	Subject  string
}

type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDueDate   SortField = "dueDate"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type TaskSort struct {
	Field     SortField
	Direction SortDirection
}

// NewTaskSort normalizes client supplied sort options. Unknown fields fall
// back to createdAt and anything but "asc" sorts descending.
func NewTaskSort(field, direction string) TaskSort {
	sort := TaskSort{Field: SortByCreatedAt, Direction: SortDesc}

	switch SortField(field) {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByTitle:
		sort.Field = SortField(field)
	}

	if strings.EqualFold(direction, string(SortAsc)) {
		sort.Direction = SortAsc
	}

	return sort
}
